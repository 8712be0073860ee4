package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// Page size bounds of the transaction listing.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store ledger.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store ledger.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: store,
		log:   log,
	}
}

// ListRequest selects one page of the caller's transactions.
type ListRequest struct {
	FromDate        string `json:"fromDate"`
	ToDate          string `json:"toDate"`
	Status          string `json:"status"`
	TransactionMode string `json:"transactionMode"`
	TransactionType string `json:"transactionType"`
	PageSize        int    `json:"pageSize"`
	PageNumber      int    `json:"pageNumber"`
}

// Page is one page of transactions, newest first.
type Page struct {
	Items        []ledger.Record `json:"items"`
	TotalRecords int64           `json:"total_records"`
	PageNumber   int             `json:"page_number"`
	PageSize     int             `json:"page_size"`
	TotalPages   int64           `json:"total_pages"`
}

// ListTransactions handles POST /api/transactions/get
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	q, err := req.query(middleware.IdentityFrom(r.Context()))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid criteria", err.Error())
		return
	}

	ctx := r.Context()
	metrics, err := h.store.Aggregate(ctx, q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions", "")
		return
	}
	items, err := h.store.Find(ctx, q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions", "")
		return
	}
	if items == nil {
		items = []ledger.Record{}
	}

	size := int64(q.Limit)
	middleware.WriteSuccess(w, http.StatusOK, Page{
		Items:        items,
		TotalRecords: metrics.TransactionCount,
		PageNumber:   q.Offset/q.Limit + 1,
		PageSize:     q.Limit,
		TotalPages:   (metrics.TransactionCount + size - 1) / size,
	})
}

// query converts the criteria into a ledger query for identity.
func (req ListRequest) query(identity string) (ledger.Query, error) {
	if identity == "" {
		return ledger.Query{}, errors.New("identity is required")
	}

	size := req.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := req.PageNumber
	if page < 1 {
		page = 1
	}

	var f domain.StructuredFilter
	var err error
	if f.StartDate, err = bound(req.FromDate, domain.DayStart); err != nil {
		return ledger.Query{}, fmt.Errorf("fromDate: %w", err)
	}
	if f.EndDate, err = bound(req.ToDate, domain.DayEnd); err != nil {
		return ledger.Query{}, fmt.Errorf("toDate: %w", err)
	}
	if req.Status != "" {
		status, ok := domain.CanonicalStatus(req.Status)
		if !ok {
			return ledger.Query{}, fmt.Errorf("unknown status %q", req.Status)
		}
		f.Status = &status
	}
	if req.TransactionMode != "" {
		mode, ok := domain.CanonicalMode(req.TransactionMode)
		if !ok {
			return ledger.Query{}, fmt.Errorf("unknown transactionMode %q", req.TransactionMode)
		}
		f.TransactionMode = []string{mode}
	}

	q := ledger.Query{
		Identity: identity,
		Filter:   f,
		Fields:   domain.Whitelist,
		Limit:    size,
		Offset:   (page - 1) * size,
	}
	if req.TransactionType != "" {
		t, ok := domain.CanonicalTransactionType(req.TransactionType)
		if !ok {
			return ledger.Query{}, fmt.Errorf("unknown transactionType %q", req.TransactionType)
		}
		q.TransactionTypes = []string{t}
	}
	return q, q.Validate()
}

// bound accepts a date or an RFC3339 timestamp. Dates are widened with day.
func bound(v string, day func(string) (string, error)) (*string, error) {
	if v == "" {
		return nil, nil
	}
	if len(v) == len("2006-01-02") {
		s, err := day(v)
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", v)
	}
	s := t.UTC().Format(domain.TimestampLayout)
	return &s, nil
}
