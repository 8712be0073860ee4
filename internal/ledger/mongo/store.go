package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// Config locates the ledger collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements ledger.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewStore connects and pings the deployment.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("NewStore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("NewStore: ping: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the identity/time index every query uses.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "initiated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: %w", err)
	}
	return nil
}

// Find runs the projected, identity-scoped query.
func (s *Store) Find(ctx context.Context, q ledger.Query) ([]ledger.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, err := buildFilter(q)
	if err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}

	opts := options.Find().
		SetProjection(projection(q.ProjectedFields())).
		SetSort(bson.D{{Key: "initiated_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("Find: query: %w", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("Find: decoding documents: %w", err)
	}

	records := make([]ledger.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, ledger.ConvertRecord(d, convertNative))
	}
	return records, nil
}

// Aggregate groups every match into a single metrics document.
func (s *Store) Aggregate(ctx context.Context, q ledger.Query) (domain.Metrics, error) {
	if err := q.Validate(); err != nil {
		return domain.Metrics{}, err
	}
	filter, err := buildFilter(q)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("Aggregate: %w", err)
	}

	cur, err := s.coll.Aggregate(ctx, aggregatePipeline(filter))
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("Aggregate: %w", err)
	}
	var out []bson.M
	if err := cur.All(ctx, &out); err != nil {
		return domain.Metrics{}, fmt.Errorf("Aggregate: decoding result: %w", err)
	}
	if len(out) == 0 {
		return domain.Metrics{}, nil
	}
	return metricsFromDoc(out[0]), nil
}

func aggregatePipeline(filter bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "transaction_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_amount", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
			{Key: "date_min", Value: bson.D{{Key: "$min", Value: "$initiated_at"}}},
			{Key: "date_max", Value: bson.D{{Key: "$max", Value: "$initiated_at"}}},
		}}},
	}
}

func metricsFromDoc(doc bson.M) domain.Metrics {
	rec := ledger.ConvertRecord(doc, convertNative)
	var m domain.Metrics
	if n, ok := rec["transaction_count"].(float64); ok {
		m.TransactionCount = int64(n)
	}
	if total, ok := rec["total_amount"].(float64); ok {
		m.TotalAmount = total
	}
	if v, ok := rec["date_min"].(string); ok {
		m.DateMin = &v
	}
	if v, ok := rec["date_max"].(string); ok {
		m.DateMax = &v
	}
	return m
}

// Users groups the collection by owner.
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	cur, err := s.coll.Aggregate(ctx, usersPipeline())
	if err != nil {
		return nil, fmt.Errorf("Users: %w", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("Users: decoding result: %w", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, userFromDoc(d))
	}
	return users, nil
}

func usersPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "user_name", Value: bson.D{{Key: "$first", Value: "$from_account.user_name"}}},
			{Key: "transaction_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func userFromDoc(doc bson.M) domain.User {
	rec := ledger.ConvertRecord(doc, convertNative)
	var u domain.User
	u.UserID, _ = rec["_id"].(string)
	u.UserName, _ = rec["user_name"].(string)
	if n, ok := rec["transaction_count"].(float64); ok {
		u.TransactionCount = int64(n)
	}
	return u
}

// Insert writes transactions with NUMERIC-safe amounts and BSON dates.
func (s *Store) Insert(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	docs := make([]any, 0, len(txns))
	for _, t := range txns {
		d, err := documentFromTransaction(t)
		if err != nil {
			return fmt.Errorf("Insert: %w", err)
		}
		docs = append(docs, d)
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("Insert: insert many: %w", err)
	}
	return nil
}

func documentFromTransaction(t domain.Transaction) (bson.D, error) {
	amount, err := bson.ParseDecimal128(t.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("amount %s: %w", t.Amount, err)
	}
	account := func(a *domain.AccountRef) any {
		if a == nil {
			return nil
		}
		return bson.D{
			{Key: "_id", Value: a.ID},
			{Key: "user_id", Value: a.UserID},
			{Key: "user_name", Value: a.UserName},
			{Key: "account_number", Value: a.AccountNumber},
		}
	}
	var merchant any
	if t.Merchant != nil {
		merchant = bson.D{
			{Key: "_id", Value: t.Merchant.ID},
			{Key: "name", Value: t.Merchant.Name},
			{Key: "type", Value: t.Merchant.Type},
			{Key: "category", Value: t.Merchant.Category},
		}
	}
	optTime := func(tt *time.Time) any {
		if tt == nil {
			return nil
		}
		return bson.NewDateTimeFromTime(*tt)
	}
	var orderID any
	if t.OrderID != nil {
		orderID = *t.OrderID
	}

	return bson.D{
		{Key: "_id", Value: t.ID},
		{Key: "transaction_id", Value: t.TransactionID},
		{Key: "user_id", Value: t.UserID},
		{Key: "from_account", Value: account(&t.FromAccount)},
		{Key: "to_account", Value: account(t.ToAccount)},
		{Key: "merchant", Value: merchant},
		{Key: "amount", Value: amount},
		{Key: "currency", Value: t.Currency},
		{Key: "transaction_type", Value: t.TransactionType},
		{Key: "transaction_mode", Value: t.TransactionMode},
		{Key: "status", Value: t.Status},
		{Key: "initiated_at", Value: bson.NewDateTimeFromTime(t.InitiatedAt)},
		{Key: "completed_at", Value: optTime(t.CompletedAt)},
		{Key: "failed_at", Value: optTime(t.FailedAt)},
		{Key: "remarks", Value: t.Remarks},
		{Key: "description", Value: t.Description},
		{Key: "reference_number", Value: t.ReferenceNumber},
		{Key: "order_id", Value: orderID},
		{Key: "created_at", Value: bson.NewDateTimeFromTime(t.CreatedAt)},
		{Key: "updated_at", Value: bson.NewDateTimeFromTime(t.UpdatedAt)},
	}, nil
}

// convertNative maps BSON-specific values onto JSON-safe primitives.
func convertNative(v any) (any, bool) {
	switch x := v.(type) {
	case bson.ObjectID:
		return x.Hex(), true
	case bson.Decimal128:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil, true
		}
		return d.InexactFloat64(), true
	case bson.DateTime:
		return ledger.FormatTime(x.Time()), true
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = ledger.JSONSafe(e.Value, convertNative)
		}
		return out, true
	case bson.M:
		return ledger.JSONSafe(map[string]any(x), convertNative), true
	case bson.A:
		return ledger.JSONSafe([]any(x), convertNative), true
	case bson.Regex:
		return x.Pattern, true
	}
	return nil, false
}

var _ ledger.Store = (*Store)(nil)
