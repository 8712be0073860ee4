package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/llm"
)

// ProjectionResult is the outcome of projection selection.
type ProjectionResult struct {
	Projection         domain.Projection  `json:"projection"`
	Reasoning          string             `json:"reasoning"`
	ParsedSuccessfully bool               `json:"parsed_successfully"`
	Error              *domain.StageError `json:"error,omitempty"`
}

// ProjectionSelector picks the fields a question needs.
type ProjectionSelector struct {
	llm llm.Provider
	log zerolog.Logger
}

// NewProjectionSelector creates a selector backed by provider.
func NewProjectionSelector(provider llm.Provider, log zerolog.Logger) *ProjectionSelector {
	return &ProjectionSelector{llm: provider, log: log}
}

// Select always returns a non-empty whitelisted projection.
func (s *ProjectionSelector) Select(ctx context.Context, query string) ProjectionResult {
	out, err := s.llm.GenerateJSON(ctx, buildProjectionPrompt(query), projectionSchema)
	if err != nil {
		s.log.Error().Err(err).Str("stage", string(StageProjection)).Msg("projection inference failed")
		return fallbackProjection(domain.NewStageError(domain.KindUpstreamFailure, err))
	}

	var raw struct {
		Fields    []string `json:"fields"`
		Reasoning string   `json:"reasoning"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		s.log.Warn().Err(err).Str("stage", string(StageProjection)).Msg("discarding unparseable projection")
		return fallbackProjection(domain.NewStageError(domain.KindParseFailure, fmt.Errorf("Select: decode: %w", err)))
	}

	return ProjectionResult{
		Projection:         domain.NewProjection(raw.Fields...),
		Reasoning:          raw.Reasoning,
		ParsedSuccessfully: true,
	}
}

func fallbackProjection(err *domain.StageError) ProjectionResult {
	return ProjectionResult{
		Projection:         domain.DefaultProjection(),
		Reasoning:          "Field selection failed; using the default fields amount and initiated_at.",
		ParsedSuccessfully: false,
		Error:              err,
	}
}
