package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/llm"
)

// rawFilter is the model's proposal before canonicalization.
type rawFilter struct {
	StartDate        *string  `json:"start_date"`
	EndDate          *string  `json:"end_date"`
	TransactionMode  []string `json:"transaction_mode"`
	Currency         *string  `json:"currency"`
	AmountMin        *float64 `json:"amount_min"`
	AmountMax        *float64 `json:"amount_max"`
	Status           *string  `json:"status"`
	MerchantCategory []string `json:"merchant_category"`
	MerchantType     []string `json:"merchant_type"`
	CounterpartyName *string  `json:"counterparty_name"`
}

// FilterExtractor turns a question into a StructuredFilter.
type FilterExtractor struct {
	llm llm.Provider
	now func() time.Time
	log zerolog.Logger
}

// NewFilterExtractor creates an extractor backed by provider.
func NewFilterExtractor(provider llm.Provider, log zerolog.Logger) *FilterExtractor {
	return &FilterExtractor{llm: provider, now: time.Now, log: log}
}

// Extract never fails: any error yields a filter with parsed_successfully=false.
func (e *FilterExtractor) Extract(ctx context.Context, query string, history []domain.Interaction) domain.StructuredFilter {
	prompt := buildFilterPrompt(query, e.now(), history)
	out, err := e.llm.GenerateJSON(ctx, prompt, filterSchema)
	if err != nil {
		e.log.Error().Err(err).Str("stage", string(StageFilter)).Msg("filter inference failed")
		return domain.FailedFilter(domain.NewStageError(domain.KindUpstreamFailure, err))
	}
	f, err := parseFilter(out)
	if err != nil {
		e.log.Warn().Err(err).Str("stage", string(StageFilter)).Msg("discarding unparseable filter")
		return domain.FailedFilter(domain.NewStageError(domain.KindParseFailure, err))
	}
	return f
}

// parseFilter decodes, canonicalizes and validates a model proposal.
func parseFilter(data []byte) (domain.StructuredFilter, error) {
	var raw rawFilter
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return domain.StructuredFilter{}, fmt.Errorf("parseFilter: decode: %w", err)
	}

	start, end := dateOnly(raw.StartDate), dateOnly(raw.EndDate)
	if start != "" && end != "" && start > end {
		start, end = end, start
	}

	f := domain.StructuredFilter{
		TransactionMode:    raw.TransactionMode,
		Currency:           raw.Currency,
		AmountMin:          raw.AmountMin,
		AmountMax:          raw.AmountMax,
		Status:             raw.Status,
		MerchantCategory:   raw.MerchantCategory,
		MerchantType:       raw.MerchantType,
		CounterpartyName:   raw.CounterpartyName,
		ParsedSuccessfully: true,
	}
	if start != "" {
		ts, err := domain.DayStart(start)
		if err != nil {
			return domain.StructuredFilter{}, fmt.Errorf("parseFilter: start_date: %w", err)
		}
		f.StartDate = &ts
	}
	if end != "" {
		ts, err := domain.DayEnd(end)
		if err != nil {
			return domain.StructuredFilter{}, fmt.Errorf("parseFilter: end_date: %w", err)
		}
		f.EndDate = &ts
	}

	f.Normalize()
	if err := f.Validate(); err != nil {
		return domain.StructuredFilter{}, fmt.Errorf("parseFilter: %w", err)
	}
	return f, nil
}

// dateOnly keeps the YYYY-MM-DD part of a proposed date.
func dateOnly(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if len(v) > 10 {
		v = v[:10]
	}
	return v
}
