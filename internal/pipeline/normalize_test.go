package pipeline

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

func pts(kv ...any) []domain.Point {
	var out []domain.Point
	for i := 0; i < len(kv); i += 2 {
		out = append(out, domain.Point{Label: kv[i].(string), Value: kv[i+1].(float64)})
	}
	return out
}

func TestNormalizeChart(t *testing.T) {
	tests := []struct {
		name       string
		in         []domain.Point
		maxBuckets int
		want       []domain.Point
	}{
		{
			name:       "catch-all labels merge into Other",
			in:         pts("Misc", 5.0, "Other", 7.0),
			maxBuckets: 12,
			want:       pts("Other", 12.0),
		},
		{
			name:       "case and whitespace are ignored for catch-alls",
			in:         pts("Food", 10.0, "  UNCATEGORIZED ", 2.0, "general", 1.0),
			maxBuckets: 12,
			want:       pts("Food", 10.0, "Other", 3.0),
		},
		{
			name:       "duplicate labels are summed",
			in:         pts("Food", 10.0, "Travel", 4.0, "Food", 5.0),
			maxBuckets: 12,
			want:       pts("Food", 15.0, "Travel", 4.0),
		},
		{
			name:       "invalid values are dropped",
			in:         pts("Food", 10.0, "Travel", -4.0, "Rent", 0.0, "Gym", math.NaN(), "Spa", math.Inf(1)),
			maxBuckets: 12,
			want:       pts("Food", 10.0),
		},
		{
			name:       "invalid values are dropped before merging",
			in:         pts("Food", 60.0, "Food", -50.0, "Travel", 20.0),
			maxBuckets: 12,
			want:       pts("Food", 60.0, "Travel", 20.0),
		},
		{
			name:       "ties sort by label",
			in:         pts("b", 3.0, "a", 3.0, "c", 5.0),
			maxBuckets: 12,
			want:       pts("c", 5.0, "a", 3.0, "b", 3.0),
		},
		{
			name:       "overflow folds into existing Other",
			in:         pts("a", 10.0, "b", 8.0, "c", 2.0, "d", 1.0, "other", 4.0),
			maxBuckets: 3,
			want:       pts("a", 10.0, "b", 8.0, "Other", 7.0),
		},
		{
			name:       "empty input",
			in:         nil,
			maxBuckets: 12,
			want:       []domain.Point{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeChart(tt.in, tt.maxBuckets))
		})
	}
}

func TestNormalizeChart_FifteenPoints(t *testing.T) {
	var in []domain.Point
	for i := 1; i <= 15; i++ {
		in = append(in, domain.Point{Label: fmt.Sprintf("m%02d", i), Value: float64(i)})
	}

	got := NormalizeChart(in, 12)
	require.Len(t, got, 12)
	assert.Equal(t, domain.Point{Label: "m15", Value: 15}, got[0])
	assert.Equal(t, domain.Point{Label: "m05", Value: 5}, got[10])
	// 1+2+3+4 fall outside the 11 largest.
	assert.Equal(t, domain.Point{Label: OtherLabel, Value: 10}, got[11])
}

func TestNormalizeChart_Properties(t *testing.T) {
	in := pts("a", 5.0, "b", -1.0, "misc", 2.5, "c", 7.0, "d", 0.5, "e", 1.0, "f", 3.0, "a", 1.0)
	for maxBuckets := 2; maxBuckets <= 8; maxBuckets++ {
		got := NormalizeChart(in, maxBuckets)
		assert.LessOrEqual(t, len(got), maxBuckets)

		var sum float64
		for i, p := range got {
			sum += p.Value
			if p.Label == OtherLabel {
				assert.Equal(t, len(got)-1, i, "Other must be last")
			}
		}
		assert.InDelta(t, 20.0, sum, 1e-9)
	}
}

func TestNormalizeVisualization(t *testing.T) {
	line := domain.NewChart(domain.ChartLine, pts("2024-01-03", 3.0, "2024-01-01", -1.0, "2024-01-02", 9.0), "")
	got := normalizeVisualization(line, 12)
	assert.Equal(t, pts("2024-01-03", 3.0, "2024-01-02", 9.0), got.Data)

	pie := domain.NewChart(domain.ChartPie, pts("x", 1.0, "y", 2.0), "")
	assert.Equal(t, pts("y", 2.0, "x", 1.0), normalizeVisualization(pie, 12).Data)

	scatter := domain.NewScatter([]domain.XYPoint{{X: 1, Y: -5}, {X: math.NaN(), Y: 2}, {X: 2, Y: math.Inf(1)}, {X: 0, Y: 0}}, "")
	assert.Equal(t, []domain.XYPoint{{X: 1, Y: -5}, {X: 0, Y: 0}}, normalizeVisualization(scatter, 12).Points)

	table := domain.NewTable([]string{"a"}, [][]any{{"1"}}, "s")
	assert.Equal(t, table, normalizeVisualization(table, 12))
}

func TestFallbackTable(t *testing.T) {
	var rows []map[string]any
	for i := 0; i < 25; i++ {
		r := map[string]any{"amount": float64(i)}
		if i == 3 {
			r["merchant"] = "Cafe"
		}
		rows = append(rows, r)
	}

	v := fallbackTable(rows, 20, errors.New("chart without data"))
	assert.Equal(t, domain.VisualizationTable, v.Type)
	assert.True(t, v.Error)
	assert.Equal(t, "chart without data", v.ErrorMessage)
	assert.Equal(t, FallbackSummary, v.TextSummary)
	assert.Equal(t, []string{"amount", "merchant"}, v.Headers)
	require.Len(t, v.Rows, 20)
	assert.Equal(t, []any{3.0, "Cafe"}, v.Rows[3])
	assert.Equal(t, []any{0.0, nil}, v.Rows[0])
}
