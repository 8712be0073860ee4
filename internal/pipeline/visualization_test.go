package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	cachemem "github.com/paarshan4800/fin-advisor/internal/cache/memory"
	"github.com/paarshan4800/fin-advisor/internal/domain"
)

func TestParseVisualization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantKind domain.ErrorKind
	}{
		{"chart", `{"type":"chart","chartType":"bar","data":[{"label":"a","value":1}],"text_summary":"s"}`, domain.VisualizationChart, ""},
		{"table", `{"type":"table","headers":["a","b"],"rows":[["1","2"]],"text_summary":"s"}`, domain.VisualizationTable, ""},
		{"chart without data", `{"type":"chart","chartType":"pie","text_summary":"s"}`, "", domain.KindContractViolation},
		{"scatter", `{"type":"chart","chartType":"scatter","data":[{"x":1,"y":2},{"x":3,"y":4,"label":"c"}],"text_summary":"s"}`, domain.VisualizationChart, ""},
		{"scatter without y", `{"type":"chart","chartType":"scatter","data":[{"x":1,"label":"a"}],"text_summary":"s"}`, "", domain.KindContractViolation},
		{"bar with xy points", `{"type":"chart","chartType":"bar","data":[{"x":1,"y":2}],"text_summary":"s"}`, "", domain.KindContractViolation},
		{"chart with radar", `{"type":"chart","chartType":"radar","data":[],"text_summary":"s"}`, "", domain.KindContractViolation},
		{"table without rows", `{"type":"table","headers":["a"],"text_summary":"s"}`, "", domain.KindContractViolation},
		{"ragged table", `{"type":"table","headers":["a","b"],"rows":[["1"]],"text_summary":"s"}`, "", domain.KindContractViolation},
		{"unknown type", `{"type":"map","text_summary":"s"}`, "", domain.KindContractViolation},
		{"unknown key", `{"type":"table","headers":[],"rows":[],"text_summary":"s","colors":[]}`, "", domain.KindParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVisualization([]byte(tt.input))
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, v.Type)
		})
	}
}

func TestVisualizationPreparer_ZeroRows(t *testing.T) {
	ctx := context.Background()
	cache := cachemem.NewStore()
	res := NewExecutor(ledgerFixture(), cache, Options{}, testLog).
		Execute(ctx, "carol", domain.StructuredFilter{}, domain.NewProjection("merchant"))
	require.Nil(t, res.Error)
	assert.Equal(t, int64(0), res.Summary.TransactionCount)

	// The provider must not be consulted for an empty result.
	p := NewVisualizationPreparer(scripted(nil), cache, Options{}, testLog)
	v := p.Prepare(ctx, VisualizationRequest{Source: Source{Handle: res.Handle}, Objective: "spend"})

	assert.Equal(t, domain.VisualizationTable, v.Type)
	assert.Equal(t, []string{"merchant", "amount", "initiated_at"}, v.Headers)
	assert.Empty(t, v.Rows)
	assert.Equal(t, NoRowsSummary, v.TextSummary)
	assert.False(t, v.Error)
}

func TestVisualizationPreparer_NormalizesChart(t *testing.T) {
	reply := `{"type":"chart","chartType":"pie","data":[
		{"label":"Food","value":670.5},{"label":"misc","value":10},{"label":"Other","value":5},
		{"label":"Petrol","value":3000},{"label":"Refund","value":-50}],"text_summary":"Petrol dominates."}`
	var prompt string
	provider := scripted(map[*genai.Schema]string{visualizationSchema: reply})
	inner := provider.GenerateJSONFunc
	provider.GenerateJSONFunc = func(ctx context.Context, p string, schema *genai.Schema) ([]byte, error) {
		prompt = p
		return inner(ctx, p, schema)
	}

	cats := domain.CategoryResult{CategoryMapping: map[string][]string{"Food": {"Swiggy"}}}
	v := NewVisualizationPreparer(provider, cachemem.NewStore(), Options{}, testLog).Prepare(context.Background(), VisualizationRequest{
		Source:         Source{Rows: []map[string]any{{"amount": 1.0}}},
		Objective:      "Total spending grouped by category",
		PreferredChart: domain.ChartPie,
		Categories:     &cats,
	})

	assert.Contains(t, prompt, "The user asked for: pie")
	assert.Contains(t, prompt, "Swiggy")
	assert.Equal(t, domain.ChartPie, v.ChartType)
	assert.Equal(t, []domain.Point{
		{Label: "Petrol", Value: 3000},
		{Label: "Food", Value: 670.5},
		{Label: OtherLabel, Value: 15},
	}, v.Data)
	assert.Equal(t, "Petrol dominates.", v.TextSummary)
}

func TestVisualizationPreparer_FallsBack(t *testing.T) {
	rows := []map[string]any{{"amount": 10.0, "status": "success"}, {"amount": 20.0}}
	p := NewVisualizationPreparer(
		scripted(map[*genai.Schema]string{visualizationSchema: `{"type":"chart","text_summary":"oops"}`}),
		cachemem.NewStore(), Options{}, testLog)

	v := p.Prepare(context.Background(), VisualizationRequest{Source: Source{Rows: rows}})
	assert.True(t, v.Error)
	assert.Contains(t, v.ErrorMessage, "chart without a valid chartType")
	assert.Equal(t, FallbackSummary, v.TextSummary)
	assert.Equal(t, []string{"amount", "status"}, v.Headers)
	assert.Equal(t, [][]any{{10.0, "success"}, {20.0, nil}}, v.Rows)

	v = p.Prepare(context.Background(), VisualizationRequest{Source: Source{Handle: "mq:bbbbbbbbbbbbbbbbbbbbbbbb"}})
	assert.True(t, v.Error)
	assert.Contains(t, v.ErrorMessage, string(domain.KindNotFoundOrExpired))
	assert.Equal(t, domain.VisualizationTable, v.Type)
	assert.Empty(t, v.Rows)
}

func TestVisualizationPreparer_Scatter(t *testing.T) {
	reply := `{"type":"chart","chartType":"scatter","data":[{"x":3,"y":420,"label":"Swiggy"},{"x":1,"y":3000,"label":"Shell"}],"text_summary":"Fuel is rare but large."}`
	p := NewVisualizationPreparer(scripted(map[*genai.Schema]string{visualizationSchema: reply}), cachemem.NewStore(), Options{}, testLog)

	v := p.Prepare(context.Background(), VisualizationRequest{
		Source:         Source{Rows: []map[string]any{{"amount": 1.0}}},
		PreferredChart: domain.ChartScatter,
	})
	require.False(t, v.Error)
	assert.True(t, v.IsScatter())
	assert.Equal(t, []domain.XYPoint{{X: 3, Y: 420, Label: "Swiggy"}, {X: 1, Y: 3000, Label: "Shell"}}, v.Points)
}
