// Package ledger reads and writes transaction documents. Every read is scoped
// to a single account holder.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// ErrMissingIdentity is returned when a query has no identity to scope it.
var ErrMissingIdentity = errors.New("ledger: identity is required")

// Record is one JSON-safe ledger document restricted to the projected fields.
type Record = map[string]any

// Query selects documents for one identity.
type Query struct {
	Identity         string
	Filter           domain.StructuredFilter
	Fields           []string
	TransactionTypes []string
	Limit            int
	Offset           int
}

// Validate checks the identity and the filter before any store call.
func (q Query) Validate() error {
	if q.Identity == "" {
		return ErrMissingIdentity
	}
	if err := q.Filter.Validate(); err != nil {
		return fmt.Errorf("ledger: invalid filter: %w", err)
	}
	for _, t := range q.TransactionTypes {
		if c, ok := domain.CanonicalTransactionType(t); !ok || c != t {
			return fmt.Errorf("ledger: invalid transaction_type %q", t)
		}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return fmt.Errorf("ledger: negative limit or offset")
	}
	return nil
}

// ProjectedFields returns the fields to read, falling back to the default projection.
func (q Query) ProjectedFields() []string {
	if len(q.Fields) == 0 {
		return domain.DefaultProjection().Fields()
	}
	return q.Fields
}

// Store is a document store holding the ledger.
//
// Find returns matching documents sorted by initiated_at descending.
// Aggregate summarises every match, ignoring Limit and Offset.
// Users lists the account holders that own at least one document, by user_id.
type Store interface {
	Find(ctx context.Context, q Query) ([]Record, error)
	Aggregate(ctx context.Context, q Query) (domain.Metrics, error)
	Users(ctx context.Context) ([]domain.User, error)
	Insert(ctx context.Context, txns []domain.Transaction) error
	Close() error
}
