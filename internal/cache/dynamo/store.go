package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/paarshan4800/fin-advisor/internal/cache"
)

// Config holds the DynamoDB table settings. Endpoint is only set for local
// DynamoDB.
type Config struct {
	Region    string
	TableName string
	Endpoint  string
}

// itemAPI is the subset of the DynamoDB client used by Store.
type itemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// record is one cache entry. ExpiresAt doubles as the table's TTL attribute.
type record struct {
	Key       string `dynamodbav:"cache_key"`
	Value     []byte `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// Store implements cache.Store on a DynamoDB table keyed by cache_key.
// DynamoDB deletes expired items lazily, so reads also check expires_at.
type Store struct {
	client    itemAPI
	tableName string
	now       func() time.Time
}

// NewStore loads the default AWS configuration and creates the client.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("dynamo.NewStore: load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, tableName: cfg.TableName, now: time.Now}, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	item, err := attributevalue.MarshalMap(record{
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("dynamo.Set: marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamo.Set: put item %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	keyAttr, err := attributevalue.MarshalMap(map[string]string{"cache_key": key})
	if err != nil {
		return nil, fmt.Errorf("dynamo.Get: marshal key: %w", err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyAttr,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo.Get: get item %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, cache.ErrNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("dynamo.Get: unmarshal item: %w", err)
	}
	if s.now().Unix() >= rec.ExpiresAt {
		return nil, cache.ErrNotFound
	}
	return rec.Value, nil
}

func (s *Store) Close() error {
	return nil
}

var _ cache.Store = (*Store)(nil)
