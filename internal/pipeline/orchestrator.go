package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/cache"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
	"github.com/paarshan4800/fin-advisor/internal/llm"
)

// Request is one question from an authenticated caller.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	Identity  string `json:"-"`
}

// Analysis carries the category findings shown next to the artifact.
type Analysis struct {
	UnnecessaryPatterns []string `json:"unnecessary_patterns"`
	Recommendations     []string `json:"recommendations"`
}

// Response is the caller-facing answer.
type Response struct {
	Query         string               `json:"query"`
	Visualization domain.Visualization `json:"visualization"`
	Analysis      Analysis             `json:"analysis"`
	Error         *domain.StageError   `json:"error"`
}

// Memory keeps the recent interactions of each session.
type Memory interface {
	History(sessionID string) []domain.Interaction
	Append(sessionID string, in domain.Interaction)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	LLM    llm.Provider
	Ledger ledger.Store
	Cache  cache.Store
	Memory Memory
}

// Orchestrator answers questions by running the stage sequence.
type Orchestrator struct {
	filter        *FilterExtractor
	projection    *ProjectionSelector
	executor      *Executor
	categories    *CategoryMapper
	visualization *VisualizationPreparer
	memory        Memory
	opts          Options
	now           func() time.Time
	log           zerolog.Logger
}

// NewOrchestrator wires the stages over deps.
func NewOrchestrator(deps Deps, opts Options, log zerolog.Logger) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		filter:        NewFilterExtractor(deps.LLM, log),
		projection:    NewProjectionSelector(deps.LLM, log),
		executor:      NewExecutor(deps.Ledger, deps.Cache, opts, log),
		categories:    NewCategoryMapper(deps.LLM, deps.Cache, log),
		visualization: NewVisualizationPreparer(deps.LLM, deps.Cache, opts, log),
		memory:        deps.Memory,
		opts:          opts,
		now:           time.Now,
		log:           log,
	}
}

// stages returns the ordered stage list for plan.
func (o *Orchestrator) stages(plan Plan) []Stage {
	steps := []Stage{
		&filterStage{extractor: o.filter},
		&projectionStage{selector: o.projection},
		&executeStage{executor: o.executor},
	}
	if plan.Categorize {
		steps = append(steps, &categoriesStage{mapper: o.categories})
	}
	return append(steps, &visualizationStage{preparer: o.visualization})
}

// Answer never fails: errors are rendered as an error artifact.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (resp Response) {
	log := o.log.With().Str("session_id", req.SessionID).Str("identity", req.Identity).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("orchestrator panicked")
			resp = errorResponse(req.Query, domain.StageErrorf(domain.KindUpstreamFailure, "unexpected failure: %v", r))
		}
	}()

	var history []domain.Interaction
	if o.memory != nil && req.SessionID != "" {
		history = o.memory.History(req.SessionID)
	}
	state := NewState(req, history)
	log.Info().
		Bool("categorize", state.Plan.Categorize).
		Str("preferred_chart", state.Plan.PreferredChart).
		Msg("answering query")

	if err := NewPipeline(o.opts.MaxIterations, o.stages(state.Plan)...).Execute(ctx, state); err != nil {
		log.Error().Err(err).Int("invocations", state.Invocations()).Msg("pipeline failed")
		return errorResponse(req.Query, err)
	}

	resp, err := assemble(req.Query, state)
	if err != nil {
		log.Error().Err(err).Msg("cannot assemble response")
		return errorResponse(req.Query, err)
	}

	if o.memory != nil && req.SessionID != "" {
		o.memory.Append(req.SessionID, domain.Interaction{
			Query:     req.Query,
			Summary:   resp.Visualization.TextSummary,
			Timestamp: o.now().UTC(),
		})
	}
	return resp
}

// assemble builds the response from the last recorded stage outputs.
func assemble(query string, state *State) (Response, error) {
	out, ok := state.Output(StageVisualization)
	if !ok {
		return Response{}, domain.StageErrorf(domain.KindContractViolation, "no visualization was recorded")
	}
	vis, ok := out.(domain.Visualization)
	if !ok {
		return Response{}, domain.StageErrorf(domain.KindContractViolation, "visualization output has type %T", out)
	}

	resp := Response{
		Query:         query,
		Visualization: vis,
		Analysis:      Analysis{UnnecessaryPatterns: []string{}, Recommendations: []string{}},
	}
	if out, ok := state.Output(StageCategories); ok {
		if cr, ok := out.(domain.CategoryResult); ok {
			if cr.UnnecessaryPatterns != nil {
				resp.Analysis.UnnecessaryPatterns = cr.UnnecessaryPatterns
			}
			if cr.Recommendations != nil {
				resp.Analysis.Recommendations = cr.Recommendations
			}
		}
	}
	return resp, nil
}

func errorResponse(query string, err error) Response {
	var se *domain.StageError
	if !errors.As(err, &se) {
		se = domain.NewStageError(domain.KindUpstreamFailure, err)
	}
	return Response{
		Query:         query,
		Visualization: domain.NewTable(nil, nil, ErrorSummaryPrefix+se.Message).Failed(se),
		Analysis:      Analysis{UnnecessaryPatterns: []string{}, Recommendations: []string{}},
		Error:         se,
	}
}
