package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// Config locates the ledger table.
type Config struct {
	ProjectID string
	Dataset   string
	Table     string
}

// Store implements ledger.Store on a BigQuery table. It holds a shared
// client for the lifetime of the process.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
}

// NewStore creates the BigQuery client.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{
		client:  client,
		project: cfg.ProjectID,
		dataset: cfg.Dataset,
		table:   cfg.Table,
	}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) qualifiedTable() string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, s.table)
}

// EnsureTable creates the ledger table, partitioned by initiated_at, unless it exists.
func (s *Store) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "initiated_at",
		},
		Clustering: &bigquery.Clustering{Fields: []string{"user_id"}},
	}
	err = s.client.DatasetInProject(s.project, s.dataset).Table(s.table).Create(ctx, meta)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureTable: create table: %w", err)
	}
	return nil
}

// Insert streams transactions into the ledger table.
func (s *Store) Insert(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	rows := make([]*TransactionRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, rowFromTransaction(t))
	}
	inserter := s.client.DatasetInProject(s.project, s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("Insert: inserting rows: %w", err)
	}
	return nil
}

// Find runs the projected, identity-scoped query.
func (s *Store) Find(ctx context.Context, q ledger.Query) ([]ledger.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, params, err := buildWhere(q)
	if err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}

	query := s.client.Query(findSQL(s.qualifiedTable(), q, where))
	query.Parameters = params

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Find: query read: %w", err)
	}

	records := []ledger.Record{}
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Find: iterating rows: %w", err)
		}
		raw := make(map[string]any, len(row))
		for k, v := range row {
			raw[k] = v
		}
		records = append(records, ledger.ConvertRecord(raw, convertNative))
	}
	return records, nil
}

type aggregateRow struct {
	TransactionCount int64                  `bigquery:"transaction_count"`
	TotalAmount      *big.Rat               `bigquery:"total_amount"`
	DateMin          bigquery.NullTimestamp `bigquery:"date_min"`
	DateMax          bigquery.NullTimestamp `bigquery:"date_max"`
}

// Aggregate counts and sums every match.
func (s *Store) Aggregate(ctx context.Context, q ledger.Query) (domain.Metrics, error) {
	if err := q.Validate(); err != nil {
		return domain.Metrics{}, err
	}
	where, params, err := buildWhere(q)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("Aggregate: %w", err)
	}

	query := s.client.Query(aggregateSQL(s.qualifiedTable(), where))
	query.Parameters = params

	it, err := query.Read(ctx)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("Aggregate: query read: %w", err)
	}
	var row aggregateRow
	if err := it.Next(&row); err != nil {
		return domain.Metrics{}, fmt.Errorf("Aggregate: reading row: %w", err)
	}
	return metricsFromRow(row), nil
}

func metricsFromRow(row aggregateRow) domain.Metrics {
	m := domain.Metrics{TransactionCount: row.TransactionCount}
	if row.TotalAmount != nil {
		m.TotalAmount = ledger.RatToFloat(row.TotalAmount)
	}
	if row.DateMin.Valid {
		v := ledger.FormatTime(row.DateMin.Timestamp)
		m.DateMin = &v
	}
	if row.DateMax.Valid {
		v := ledger.FormatTime(row.DateMax.Timestamp)
		m.DateMax = &v
	}
	return m
}

type userRow struct {
	UserID           string              `bigquery:"user_id"`
	UserName         bigquery.NullString `bigquery:"user_name"`
	TransactionCount int64               `bigquery:"transaction_count"`
}

// Users groups the table by owner.
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	it, err := s.client.Query(usersSQL(s.qualifiedTable())).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Users: query read: %w", err)
	}
	users := []domain.User{}
	for {
		var row userRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Users: iterating rows: %w", err)
		}
		users = append(users, domain.User{
			UserID:           row.UserID,
			UserName:         row.UserName.StringVal,
			TransactionCount: row.TransactionCount,
		})
	}
	return users, nil
}

// convertNative handles the civil types BigQuery returns for DATE, DATETIME and TIME.
func convertNative(v any) (any, bool) {
	switch x := v.(type) {
	case civil.Date:
		return x.String(), true
	case civil.DateTime:
		return x.String(), true
	case civil.Time:
		return x.String(), true
	}
	return nil, false
}

var _ ledger.Store = (*Store)(nil)
