package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/cache"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/llm"
)

// VisualizationRequest describes the artifact to prepare.
type VisualizationRequest struct {
	Source
	Objective      string
	PreferredChart string
	Categories     *domain.CategoryResult
}

// VisualizationPreparer turns a result into exactly one chart or table.
type VisualizationPreparer struct {
	llm   llm.Provider
	cache cache.Store
	opts  Options
	log   zerolog.Logger
}

// NewVisualizationPreparer creates a preparer reading handles from c.
func NewVisualizationPreparer(provider llm.Provider, c cache.Store, opts Options, log zerolog.Logger) *VisualizationPreparer {
	return &VisualizationPreparer{llm: provider, cache: c, opts: opts.withDefaults(), log: log}
}

// Prepare always returns an artifact; failures give the fallback table.
func (p *VisualizationPreparer) Prepare(ctx context.Context, req VisualizationRequest) domain.Visualization {
	rows, fields, serr := loadRows(ctx, p.cache, req.Source)
	if serr != nil {
		p.log.Warn().Err(serr).Str("stage", string(StageVisualization)).Msg("cannot load rows")
		return fallbackTable(nil, p.opts.FallbackRows, serr)
	}
	if len(rows) == 0 {
		return domain.NewTable(fields, nil, NoRowsSummary)
	}

	v, err := p.generate(ctx, req, rows)
	if err != nil {
		p.log.Warn().Err(err).Str("stage", string(StageVisualization)).Msg("using fallback table")
		return fallbackTable(rows, p.opts.FallbackRows, err)
	}
	return normalizeVisualization(v, p.opts.MaxBuckets)
}

func (p *VisualizationPreparer) generate(ctx context.Context, req VisualizationRequest, rows []map[string]any) (domain.Visualization, error) {
	prompt, err := buildVisualizationPrompt(req, rows)
	if err != nil {
		return domain.Visualization{}, domain.NewStageError(domain.KindParseFailure, err)
	}
	out, err := p.llm.GenerateJSON(ctx, prompt, visualizationSchema)
	if err != nil {
		return domain.Visualization{}, domain.NewStageError(domain.KindUpstreamFailure, err)
	}
	return parseVisualization(out)
}
