package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// Store is an in-memory implementation of ledger.Store.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu   sync.RWMutex
	txns []domain.Transaction
}

// NewStore creates a store holding txns.
func NewStore(txns ...domain.Transaction) *Store {
	return &Store{txns: append([]domain.Transaction(nil), txns...)}
}

// Insert appends transactions.
func (s *Store) Insert(ctx context.Context, txns []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, txns...)
	return nil
}

// Find returns projected matches, newest first.
func (s *Store) Find(ctx context.Context, q ledger.Query) ([]ledger.Record, error) {
	matched, err := s.match(q)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].InitiatedAt.After(matched[j].InitiatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []ledger.Record{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	fields := q.ProjectedFields()
	out := make([]ledger.Record, 0, len(matched))
	for _, t := range matched {
		out = append(out, ledger.Project(ledger.Document(t), fields))
	}
	return out, nil
}

// Aggregate summarises every match.
func (s *Store) Aggregate(ctx context.Context, q ledger.Query) (domain.Metrics, error) {
	matched, err := s.match(q)
	if err != nil {
		return domain.Metrics{}, err
	}

	var m domain.Metrics
	total := decimal.Zero
	for i, t := range matched {
		total = total.Add(t.Amount)
		ts := ledger.FormatTime(t.InitiatedAt)
		if i == 0 || ts < *m.DateMin {
			m.DateMin = &ts
		}
		if i == 0 || ts > *m.DateMax {
			v := ts
			m.DateMax = &v
		}
	}
	m.TransactionCount = int64(len(matched))
	m.TotalAmount = total.InexactFloat64()
	return m, nil
}

// Users groups the stored documents by owner.
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := map[string]*domain.User{}
	for _, t := range s.txns {
		u, ok := byID[t.UserID]
		if !ok {
			u = &domain.User{UserID: t.UserID, UserName: t.FromAccount.UserName}
			byID[t.UserID] = u
		}
		u.TransactionCount++
	}

	users := make([]domain.User, 0, len(byID))
	for _, u := range byID {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) match(q ledger.Query) ([]domain.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	p := newPredicate(q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, t := range s.txns {
		if p.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

var _ ledger.Store = (*Store)(nil)

type predicate struct {
	q          ledger.Query
	start, end *string
	types      map[string]bool
	categories map[string]bool
	modes      map[string]bool
	txnTypes   map[string]bool
	needle     string
}

func newPredicate(q ledger.Query) *predicate {
	p := &predicate{q: q}
	if t, ok, _ := q.Filter.StartTime(); ok {
		s := ledger.FormatTime(t)
		p.start = &s
	}
	if t, ok, _ := q.Filter.EndTime(); ok {
		e := ledger.FormatTime(t)
		p.end = &e
	}
	types, cats := ledger.MerchantClause(q.Filter)
	p.types = set(types)
	p.categories = set(cats)
	p.modes = set(q.Filter.TransactionMode)
	p.txnTypes = set(q.TransactionTypes)
	if q.Filter.CounterpartyName != nil {
		p.needle = strings.ToLower(*q.Filter.CounterpartyName)
	}
	return p
}

func (p *predicate) matches(t domain.Transaction) bool {
	f := p.q.Filter
	if t.UserID != p.q.Identity {
		return false
	}
	ts := ledger.FormatTime(t.InitiatedAt)
	if p.start != nil && ts < *p.start {
		return false
	}
	if p.end != nil && ts > *p.end {
		return false
	}
	if p.modes != nil && !p.modes[t.TransactionMode] {
		return false
	}
	if p.txnTypes != nil && !p.txnTypes[t.TransactionType] {
		return false
	}
	if f.Currency != nil && t.Currency != *f.Currency {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AmountMin != nil && t.Amount.LessThan(decimal.NewFromFloat(*f.AmountMin)) {
		return false
	}
	if f.AmountMax != nil && t.Amount.GreaterThan(decimal.NewFromFloat(*f.AmountMax)) {
		return false
	}
	if p.types != nil || p.categories != nil {
		if t.Merchant == nil || !(p.types[t.Merchant.Type] || p.categories[t.Merchant.Category]) {
			return false
		}
	}
	if p.needle != "" && !strings.Contains(strings.ToLower(t.Counterparty()), p.needle) {
		return false
	}
	return true
}

func set(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
