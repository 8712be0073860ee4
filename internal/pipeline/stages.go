package pipeline

import (
	"context"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// StageID names one of the closed set of pipeline stages.
type StageID string

const (
	StageFilter        StageID = "extract_filter"
	StageProjection    StageID = "select_projection"
	StageExecute       StageID = "execute_query"
	StageCategories    StageID = "map_categories"
	StageVisualization StageID = "prepare_visualization"
)

// Stage is a single step of the query pipeline.
type Stage interface {
	ID() StageID
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all stages of one request.
type State struct {
	Request    Request
	History    []domain.Interaction
	Plan       Plan
	Filter     domain.StructuredFilter
	Projection ProjectionResult
	Query      QueryResult

	outputs     map[StageID]any
	invocations int
}

// NewState starts the state of a request.
func NewState(req Request, history []domain.Interaction) *State {
	return &State{
		Request: req,
		History: history,
		Plan:    PlanQuery(req.Query),
		outputs: map[StageID]any{},
	}
}

// Record stores the output of a stage. A later record replaces an earlier one.
func (s *State) Record(id StageID, out any) {
	s.outputs[id] = out
}

// Output returns the last recorded output of a stage.
func (s *State) Output(id StageID) (any, bool) {
	out, ok := s.outputs[id]
	return out, ok
}

// Invocations reports how many stages have run.
func (s *State) Invocations() int {
	return s.invocations
}

// Step 1: filterStage extracts the structured filter.
type filterStage struct{ extractor *FilterExtractor }

func (s *filterStage) ID() StageID { return StageFilter }

func (s *filterStage) Execute(ctx context.Context, state *State) error {
	state.Filter = s.extractor.Extract(ctx, state.Request.Query, state.History)
	state.Record(StageFilter, state.Filter)
	return nil
}

// Step 2: projectionStage selects the projected fields.
type projectionStage struct{ selector *ProjectionSelector }

func (s *projectionStage) ID() StageID { return StageProjection }

func (s *projectionStage) Execute(ctx context.Context, state *State) error {
	state.Projection = s.selector.Select(ctx, state.Request.Query)
	state.Record(StageProjection, state.Projection)
	return nil
}

// Step 3: executeStage runs and caches the ledger query.
type executeStage struct{ executor *Executor }

func (s *executeStage) ID() StageID { return StageExecute }

func (s *executeStage) Execute(ctx context.Context, state *State) error {
	state.Query = s.executor.Execute(ctx, state.Request.Identity, state.Filter, state.Projection.Projection)
	state.Record(StageExecute, state.Query)
	if state.Query.Error != nil {
		// Later stages have no handle to read from.
		return state.Query.Error
	}
	return nil
}

// Step 4 (optional): categoriesStage maps the cached rows into categories.
type categoriesStage struct{ mapper *CategoryMapper }

func (s *categoriesStage) ID() StageID { return StageCategories }

func (s *categoriesStage) Execute(ctx context.Context, state *State) error {
	state.Record(StageCategories, s.mapper.Map(ctx, Source{Handle: state.Query.Handle}))
	return nil
}

// Step 5: visualizationStage prepares the final artifact.
type visualizationStage struct{ preparer *VisualizationPreparer }

func (s *visualizationStage) ID() StageID { return StageVisualization }

func (s *visualizationStage) Execute(ctx context.Context, state *State) error {
	req := VisualizationRequest{
		Source:         Source{Handle: state.Query.Handle},
		Objective:      state.Plan.Objective,
		PreferredChart: state.Plan.PreferredChart,
	}
	if out, ok := state.Output(StageCategories); ok {
		if cr, ok := out.(domain.CategoryResult); ok {
			req.Categories = &cr
		}
	}
	state.Record(StageVisualization, s.preparer.Prepare(ctx, req))
	return nil
}
