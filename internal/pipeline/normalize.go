package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

var catchAllLabels = map[string]bool{
	"other":         true,
	"others":        true,
	"misc":          true,
	"miscellaneous": true,
	"uncategorized": true,
	"unknown":       true,
	"general":       true,
	"remaining":     true,
	"rest":          true,
}

// canonicalLabel trims a label and folds every catch-all spelling into "Other".
func canonicalLabel(label string) string {
	l := strings.TrimSpace(label)
	if l == "" || catchAllLabels[strings.ToLower(l)] {
		return OtherLabel
	}
	return l
}

func validValue(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// dropInvalid keeps the points with a finite positive value, in order.
func dropInvalid(points []domain.Point) []domain.Point {
	out := make([]domain.Point, 0, len(points))
	for _, p := range points {
		if validValue(p.Value) {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeChart prepares the points of a categorical chart. Catch-all labels
// become "Other", equal labels are merged, invalid values dropped, and the rest
// is sorted by value. At most maxBuckets points are returned; the smallest
// labels are folded into "Other", which always comes last.
func NormalizeChart(points []domain.Point, maxBuckets int) []domain.Point {
	if maxBuckets < 2 {
		maxBuckets = DefaultMaxBuckets
	}

	merged := map[string]float64{}
	for _, p := range dropInvalid(points) {
		merged[canonicalLabel(p.Label)] += p.Value
	}

	other := merged[OtherLabel]
	delete(merged, OtherLabel)

	named := make([]domain.Point, 0, len(merged))
	for label, v := range merged {
		if validValue(v) {
			named = append(named, domain.Point{Label: label, Value: v})
		}
	}
	sort.Slice(named, func(i, j int) bool {
		if named[i].Value != named[j].Value {
			return named[i].Value > named[j].Value
		}
		return named[i].Label < named[j].Label
	})

	if keep := maxBuckets - 1; len(named) > keep {
		for _, p := range named[keep:] {
			other += p.Value
		}
		named = named[:keep]
	}
	if validValue(other) {
		named = append(named, domain.Point{Label: OtherLabel, Value: other})
	}
	return named
}

// normalizeVisualization applies chart normalization by chart type. Tables
// pass through unchanged.
func normalizeVisualization(v domain.Visualization, maxBuckets int) domain.Visualization {
	if !v.IsChart() {
		return v
	}
	switch v.ChartType {
	case domain.ChartLine:
		v.Data = dropInvalid(v.Data)
	case domain.ChartScatter:
		v.Points = finitePoints(v.Points)
	default:
		v.Data = NormalizeChart(v.Data, maxBuckets)
	}
	return v
}

// finitePoints keeps scatter points whose coordinates are finite, in order.
// Scatter axes are not amounts, so zero and negative values stay.
func finitePoints(points []domain.XYPoint) []domain.XYPoint {
	out := make([]domain.XYPoint, 0, len(points))
	for _, p := range points {
		if finite(p.X) && finite(p.Y) {
			out = append(out, p)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// fallbackTable renders rows as a plain table: the sorted union of keys as
// headers and the first n rows. cause is reported as the error message.
func fallbackTable(rows []map[string]any, n int, cause error) domain.Visualization {
	headers := rowKeys(rows)
	if len(rows) > n {
		rows = rows[:n]
	}
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells := make([]any, len(headers))
		for i, h := range headers {
			cells[i] = r[h]
		}
		out = append(out, cells)
	}
	return domain.NewTable(headers, out, FallbackSummary).Failed(cause)
}
