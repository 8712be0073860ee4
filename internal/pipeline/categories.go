package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/cache"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/llm"
)

type rawCategoryResult struct {
	CategoryMapping []struct {
		Category string   `json:"category"`
		Items    []string `json:"items"`
	} `json:"category_mapping"`
	UnnecessaryPatterns []string `json:"unnecessary_patterns"`
	Recommendations     []string `json:"recommendations"`
}

// CategoryMapper groups the rows of a result into spending categories.
type CategoryMapper struct {
	llm   llm.Provider
	cache cache.Store
	log   zerolog.Logger
}

// NewCategoryMapper creates a mapper reading handles from c.
func NewCategoryMapper(provider llm.Provider, c cache.Store, log zerolog.Logger) *CategoryMapper {
	return &CategoryMapper{llm: provider, cache: c, log: log}
}

// Map never fails: errors come back on the zero-value result.
func (m *CategoryMapper) Map(ctx context.Context, src Source) domain.CategoryResult {
	rows, _, serr := loadRows(ctx, m.cache, src)
	if serr != nil {
		m.log.Warn().Err(serr).Str("stage", string(StageCategories)).Msg("cannot load rows")
		return domain.FailedCategoryResult(serr)
	}
	if len(rows) == 0 {
		r := domain.EmptyCategoryResult()
		r.Note = domain.NoTransactionsNote
		return r
	}

	prompt, err := buildCategoryPrompt(rows)
	if err != nil {
		return domain.FailedCategoryResult(domain.NewStageError(domain.KindParseFailure, err))
	}
	out, err := m.llm.GenerateJSON(ctx, prompt, categorySchema)
	if err != nil {
		m.log.Error().Err(err).Str("stage", string(StageCategories)).Msg("category inference failed")
		return domain.FailedCategoryResult(domain.NewStageError(domain.KindUpstreamFailure, err))
	}
	result, err := parseCategories(out)
	if err != nil {
		m.log.Warn().Err(err).Str("stage", string(StageCategories)).Msg("discarding unparseable categories")
		return domain.FailedCategoryResult(domain.NewStageError(domain.KindParseFailure, err))
	}
	return result
}

func parseCategories(data []byte) (domain.CategoryResult, error) {
	var raw rawCategoryResult
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return domain.CategoryResult{}, fmt.Errorf("parseCategories: decode: %w", err)
	}

	r := domain.EmptyCategoryResult()
	for _, c := range raw.CategoryMapping {
		label := strings.TrimSpace(c.Category)
		if label == "" {
			continue
		}
		r.CategoryMapping[label] = append(r.CategoryMapping[label], c.Items...)
	}
	if raw.UnnecessaryPatterns != nil {
		r.UnnecessaryPatterns = raw.UnnecessaryPatterns
	}
	if raw.Recommendations != nil {
		r.Recommendations = raw.Recommendations
	}
	return r, nil
}
