package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/cache"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// QuerySummary is the compact view of a cached result handed to later stages.
type QuerySummary struct {
	TransactionCount int64            `json:"transaction_count"`
	TotalAmount      float64          `json:"total_amount"`
	DateMin          *string          `json:"date_min"`
	DateMax          *string          `json:"date_max"`
	Truncated        bool             `json:"truncated"`
	Fields           []string         `json:"fields"`
	Sample           []map[string]any `json:"sample"`
}

// QueryResult is the outcome of cached query execution.
type QueryResult struct {
	Handle     string                  `json:"handle,omitempty"`
	Summary    QuerySummary            `json:"summary"`
	Filter     domain.StructuredFilter `json:"query_filter"`
	Projection domain.Projection       `json:"projection"`
	Error      *domain.StageError      `json:"error,omitempty"`
}

// Executor runs identity-scoped ledger queries and caches their results.
type Executor struct {
	ledger ledger.Store
	cache  cache.Store
	opts   Options
	now    func() time.Time
	log    zerolog.Logger
}

// NewExecutor creates an executor over store and c.
func NewExecutor(store ledger.Store, c cache.Store, opts Options, log zerolog.Logger) *Executor {
	return &Executor{
		ledger: store,
		cache:  c,
		opts:   opts.withDefaults(),
		now:    time.Now,
		log:    log,
	}
}

// Execute never fails: errors are returned inside the result.
func (e *Executor) Execute(ctx context.Context, identity string, f domain.StructuredFilter, p domain.Projection) QueryResult {
	res := QueryResult{Filter: f, Projection: p, Summary: QuerySummary{Fields: p.Fields(), Sample: []map[string]any{}}}

	if identity == "" {
		res.Error = domain.NewStageError(domain.KindValidationFailure, ledger.ErrMissingIdentity)
		return res
	}

	q := ledger.Query{
		Identity: identity,
		Filter:   f,
		Fields:   p.Fields(),
		Limit:    e.opts.MaxCachedRows + 1,
	}
	if err := q.Validate(); err != nil {
		res.Error = domain.NewStageError(domain.KindValidationFailure, err)
		return res
	}

	rows, err := e.ledger.Find(ctx, q)
	if err != nil {
		res.Error = domain.NewStageError(domain.KindUpstreamFailure, fmt.Errorf("Execute: find: %w", err))
		return res
	}
	truncated := len(rows) > e.opts.MaxCachedRows
	if truncated {
		rows = rows[:e.opts.MaxCachedRows]
	}

	metrics, err := e.ledger.Aggregate(ctx, q)
	if err != nil {
		res.Error = domain.NewStageError(domain.KindUpstreamFailure, fmt.Errorf("Execute: aggregate: %w", err))
		return res
	}
	metrics.Truncated = truncated

	created := e.now().UTC()
	handle, err := MakeHandle(f, p, created)
	if err != nil {
		res.Error = domain.NewStageError(domain.KindParseFailure, err)
		return res
	}

	data := make([]map[string]any, len(rows))
	for i, r := range rows {
		data[i] = r
	}
	entry := domain.CacheEntry{
		Handle:      handle,
		CreatedAt:   created.Format(time.RFC3339Nano),
		TTLSeconds:  int(e.opts.CacheTTL / time.Second),
		QueryFilter: f,
		Projection:  p,
		Metrics:     metrics,
		Data:        data,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		res.Error = domain.NewStageError(domain.KindParseFailure, fmt.Errorf("Execute: encode entry: %w", err))
		return res
	}
	if err := e.cache.Set(ctx, handle, payload, e.opts.CacheTTL); err != nil {
		res.Error = domain.NewStageError(domain.KindUpstreamFailure, fmt.Errorf("Execute: cache set: %w", err))
		return res
	}

	e.log.Info().
		Str("stage", string(StageExecute)).
		Str("handle", handle).
		Int64("transaction_count", metrics.TransactionCount).
		Bool("truncated", truncated).
		Msg("query cached")

	res.Handle = handle
	res.Summary = QuerySummary{
		TransactionCount: metrics.TransactionCount,
		TotalAmount:      metrics.TotalAmount,
		DateMin:          metrics.DateMin,
		DateMax:          metrics.DateMax,
		Truncated:        truncated,
		Fields:           p.Fields(),
		Sample:           sample(data, e.opts.SampleSize),
	}
	return res
}

func sample(rows []map[string]any, n int) []map[string]any {
	if len(rows) < n {
		n = len(rows)
	}
	out := make([]map[string]any, n)
	copy(out, rows[:n])
	return out
}
