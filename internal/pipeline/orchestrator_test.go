package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	cachemem "github.com/paarshan4800/fin-advisor/internal/cache/memory"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// fakeMemory is a mock implementation of Memory.
type fakeMemory struct {
	mu    sync.Mutex
	turns map[string][]domain.Interaction
}

func (m *fakeMemory) History(id string) []domain.Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Interaction(nil), m.turns[id]...)
}

func (m *fakeMemory) Append(id string, in domain.Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turns == nil {
		m.turns = map[string][]domain.Interaction{}
	}
	m.turns[id] = append(m.turns[id], in)
}

func happyProvider(calls *[]*genai.Schema) *fakeProvider {
	responses := map[*genai.Schema]string{
		filterSchema:        `{"merchant_category":["Food"]}`,
		projectionSchema:    `{"fields":["merchant"],"reasoning":"by merchant"}`,
		categorySchema:      categoryReply,
		visualizationSchema: `{"type":"chart","chartType":"bar","data":[{"label":"Swiggy","value":420},{"label":"Blue Tokai","value":250.5}],"text_summary":"Swiggy leads."}`,
	}
	return &fakeProvider{
		GenerateJSONFunc: func(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
			*calls = append(*calls, schema)
			out, ok := responses[schema]
			if !ok {
				return nil, errors.New("unexpected schema")
			}
			return []byte(out), nil
		},
	}
}

func TestOrchestrator_Answer(t *testing.T) {
	var calls []*genai.Schema
	mem := &fakeMemory{}
	o := NewOrchestrator(Deps{
		LLM:    happyProvider(&calls),
		Ledger: ledgerFixture(),
		Cache:  cachemem.NewStore(),
		Memory: mem,
	}, Options{}, testLog)

	resp := o.Answer(context.Background(), Request{Query: "Bar chart of food spending by merchant", SessionID: "s1", Identity: "alice"})

	require.Nil(t, resp.Error)
	assert.Equal(t, []*genai.Schema{filterSchema, projectionSchema, visualizationSchema}, calls)
	assert.Equal(t, domain.ChartBar, resp.Visualization.ChartType)
	assert.Equal(t, "Swiggy", resp.Visualization.Data[0].Label)
	assert.Empty(t, resp.Analysis.Recommendations)

	history := mem.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, "Swiggy leads.", history[0].Summary)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"query": "Bar chart of food spending by merchant",
		"visualization": {"type":"chart","chartType":"bar","data":[{"label":"Swiggy","value":420},{"label":"Blue Tokai","value":250.5}],"text_summary":"Swiggy leads."},
		"analysis": {"unnecessary_patterns": [], "recommendations": []},
		"error": null
	}`, string(body))
}

func TestOrchestrator_RunsCategoriesWhenImplied(t *testing.T) {
	var calls []*genai.Schema
	o := NewOrchestrator(Deps{LLM: happyProvider(&calls), Ledger: ledgerFixture(), Cache: cachemem.NewStore()}, Options{}, testLog)

	resp := o.Answer(context.Background(), Request{Query: "Where can I save money? Show a breakdown", Identity: "alice"})

	require.Nil(t, resp.Error)
	assert.Equal(t, []*genai.Schema{filterSchema, projectionSchema, categorySchema, visualizationSchema}, calls)
	assert.Equal(t, []string{"Frequent food delivery"}, resp.Analysis.UnnecessaryPatterns)
	assert.Equal(t, []string{"Cook at home twice a week"}, resp.Analysis.Recommendations)
}

func TestOrchestrator_ZeroRowsStillVisualizes(t *testing.T) {
	var calls []*genai.Schema
	o := NewOrchestrator(Deps{LLM: happyProvider(&calls), Ledger: ledgerFixture(), Cache: cachemem.NewStore()}, Options{}, testLog)

	resp := o.Answer(context.Background(), Request{Query: "my spending", Identity: "nobody"})

	require.Nil(t, resp.Error)
	assert.Equal(t, domain.VisualizationTable, resp.Visualization.Type)
	assert.Equal(t, NoRowsSummary, resp.Visualization.TextSummary)
	assert.NotContains(t, calls, visualizationSchema)
}

func TestOrchestrator_IterationLimit(t *testing.T) {
	var calls []*genai.Schema
	o := NewOrchestrator(Deps{LLM: happyProvider(&calls), Ledger: ledgerFixture(), Cache: cachemem.NewStore()}, Options{MaxIterations: 2}, testLog)

	resp := o.Answer(context.Background(), Request{Query: "my spending", Identity: "alice"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.KindIterationLimitExceeded, resp.Error.Kind)
	assert.True(t, resp.Visualization.Error)
	assert.Equal(t, domain.VisualizationTable, resp.Visualization.Type)
	assert.Contains(t, resp.Visualization.TextSummary, ErrorSummaryPrefix)
}

func TestOrchestrator_LongestPlanFitsMaxStages(t *testing.T) {
	o := NewOrchestrator(Deps{LLM: &fakeProvider{}, Ledger: ledgerFixture(), Cache: cachemem.NewStore()}, Options{}, testLog)
	assert.Len(t, o.stages(Plan{Categorize: true}), MaxStages)
	assert.Len(t, o.stages(Plan{}), MaxStages-1)
}

func TestOrchestrator_RecoversPanics(t *testing.T) {
	provider := &fakeProvider{
		GenerateJSONFunc: func(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
			panic("boom")
		},
	}
	mem := &fakeMemory{}
	o := NewOrchestrator(Deps{LLM: provider, Ledger: ledgerFixture(), Cache: cachemem.NewStore(), Memory: mem}, Options{}, testLog)

	resp := o.Answer(context.Background(), Request{Query: "q", SessionID: "s", Identity: "alice"})

	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Visualization.TextSummary, "I encountered an error processing your request: ")
	assert.Contains(t, resp.Visualization.TextSummary, "boom")
	assert.True(t, resp.Visualization.Error)
	assert.Empty(t, mem.History("s"))
}

func TestState_LastRecordWins(t *testing.T) {
	state := NewState(Request{Query: "q"}, nil)
	state.Record(StageVisualization, domain.NewTable(nil, nil, "first"))
	state.Record(StageVisualization, domain.NewTable(nil, nil, "second"))

	resp, err := assemble("q", state)
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Visualization.TextSummary)

	_, err = assemble("q", NewState(Request{}, nil))
	assert.Equal(t, domain.KindContractViolation, domain.KindOf(err))
}

// countingStage is a mock Stage that counts its runs.
type countingStage struct {
	id   StageID
	runs *int
	err  error
}

func (s *countingStage) ID() StageID { return s.id }

func (s *countingStage) Execute(ctx context.Context, state *State) error {
	*s.runs++
	return s.err
}

func TestPipeline_Execute(t *testing.T) {
	runs := 0
	ok := &countingStage{id: StageFilter, runs: &runs}
	bad := &countingStage{id: StageProjection, runs: &runs, err: errors.New("nope")}

	err := NewPipeline(5, ok, bad, ok).Execute(context.Background(), NewState(Request{}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 2 (select_projection) failed")
	assert.Equal(t, 2, runs)

	runs = 0
	state := NewState(Request{}, nil)
	err = NewPipeline(3, ok, ok, ok, ok).Execute(context.Background(), state)
	assert.Equal(t, domain.KindIterationLimitExceeded, domain.KindOf(err))
	assert.Equal(t, 3, runs)
	assert.Equal(t, 3, state.Invocations())
}

func TestOrchestrator_ExecuteFailures(t *testing.T) {
	tests := []struct {
		name     string
		ledger   ledger.Store
		identity string
		wantKind domain.ErrorKind
		wantMsg  string
	}{
		{
			name:     "ledger find fails",
			ledger:   &failingLedger{err: errors.New("connection refused")},
			identity: "alice",
			wantKind: domain.KindUpstreamFailure,
			wantMsg:  "connection refused",
		},
		{
			name:     "missing identity",
			ledger:   ledgerFixture(),
			identity: "",
			wantKind: domain.KindValidationFailure,
			wantMsg:  ledger.ErrMissingIdentity.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []*genai.Schema
			mem := &fakeMemory{}
			o := NewOrchestrator(Deps{LLM: happyProvider(&calls), Ledger: tt.ledger, Cache: cachemem.NewStore(), Memory: mem}, Options{}, testLog)

			resp := o.Answer(context.Background(), Request{Query: "Bar chart of food spending", SessionID: "s", Identity: tt.identity})

			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
			assert.True(t, resp.Visualization.Error)
			assert.Equal(t, domain.VisualizationTable, resp.Visualization.Type)
			assert.Contains(t, resp.Visualization.TextSummary, ErrorSummaryPrefix)
			assert.Contains(t, resp.Visualization.TextSummary, tt.wantMsg)
			assert.NotContains(t, resp.Visualization.TextSummary, FallbackSummary)
			assert.NotContains(t, calls, visualizationSchema)
			assert.Empty(t, mem.History("s"))
		})
	}
}
