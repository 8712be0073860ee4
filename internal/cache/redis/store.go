package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/paarshan4800/fin-advisor/internal/cache"
)

// Config holds the connection settings for a Redis cache.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// commander is the subset of the go-redis client used by Store.
type commander interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Close() error
}

// Store implements cache.Store with Redis key expiry.
type Store struct {
	client commander
}

// NewStore connects to Redis and verifies the connection with PING.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.NewStore: ping %s: %w", cfg.Addr, err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.Set: %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis.Get: %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ cache.Store = (*Store)(nil)
