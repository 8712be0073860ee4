// Package render draws visualizations for terminals and image files.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

const (
	width  = 800
	height = 400
)

// ErrNotChart is returned by PNG for table visualizations.
var ErrNotChart = errors.New("visualization is not a chart")

// Table writes v as an ASCII table. Charts are listed as label/value rows,
// scatter charts as x/y/label rows.
func Table(w io.Writer, v domain.Visualization) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)

	switch {
	case v.IsScatter():
		table.SetHeader([]string{"x", "y", "label"})
		for _, p := range v.Points {
			table.Append([]string{Cell(p.X), Cell(p.Y), p.Label})
		}
	case v.IsChart():
		table.SetHeader([]string{"label", "value"})
		for _, p := range v.Data {
			table.Append([]string{p.Label, strconv.FormatFloat(p.Value, 'f', 2, 64)})
		}
	default:
		table.SetHeader(v.Headers)
		for _, row := range v.Rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = Cell(c)
			}
			table.Append(cells)
		}
	}
	table.Render()

	if v.TextSummary != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", v.TextSummary); err != nil {
			return fmt.Errorf("Table: write summary: %w", err)
		}
	}
	return nil
}

// Cell formats one table value.
func Cell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case map[string]any:
		if name, ok := c["name"].(string); ok {
			return name
		}
		if name, ok := c["user_name"].(string); ok {
			return name
		}
	}
	return fmt.Sprint(v)
}

// PNG draws a chart visualization as a PNG image.
func PNG(w io.Writer, v domain.Visualization) error {
	if !v.IsChart() {
		return ErrNotChart
	}
	if v.IsScatter() {
		if len(v.Points) == 0 {
			return fmt.Errorf("PNG: no data points")
		}
		if err := scatter(v).Render(chart.PNG, w); err != nil {
			return fmt.Errorf("PNG: render scatter chart: %w", err)
		}
		return nil
	}
	if len(v.Data) == 0 {
		return fmt.Errorf("PNG: no data points")
	}

	var err error
	switch v.ChartType {
	case domain.ChartPie:
		err = pie(v).Render(chart.PNG, w)
	case domain.ChartLine:
		if len(v.Data) < 2 {
			err = bar(v).Render(chart.PNG, w)
			break
		}
		err = line(v).Render(chart.PNG, w)
	default:
		err = bar(v).Render(chart.PNG, w)
	}
	if err != nil {
		return fmt.Errorf("PNG: render %s chart: %w", v.ChartType, err)
	}
	return nil
}

func values(points []domain.Point) []chart.Value {
	out := make([]chart.Value, 0, len(points))
	for _, p := range points {
		out = append(out, chart.Value{Label: p.Label, Value: p.Value})
	}
	return out
}

func bar(v domain.Visualization) chart.BarChart {
	return chart.BarChart{
		Title: v.TextSummary,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Width:    width,
		Height:   height,
		BarWidth: 40,
		Bars:     values(v.Data),
	}
}

func pie(v domain.Visualization) chart.PieChart {
	return chart.PieChart{
		Title:  v.TextSummary,
		Width:  width,
		Height: height,
		Values: values(v.Data),
	}
}

// line plots points in order; labels become x-axis ticks.
func line(v domain.Visualization) chart.Chart {
	xs := make([]float64, len(v.Data))
	ys := make([]float64, len(v.Data))
	ticks := make([]chart.Tick, len(v.Data))
	for i, p := range v.Data {
		xs[i] = float64(i)
		ys[i] = p.Value
		ticks[i] = chart.Tick{Value: float64(i), Label: p.Label}
	}
	return chart.Chart{
		Title:  v.TextSummary,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: ys},
		},
	}
}

func scatter(v domain.Visualization) chart.Chart {
	xs := make([]float64, len(v.Points))
	ys := make([]float64, len(v.Points))
	for i, p := range v.Points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return chart.Chart{
		Title:  v.TextSummary,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Range: span(xs)},
		YAxis: chart.YAxis{Range: span(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5},
				XValues: xs,
				YValues: ys,
			},
		},
	}
}

// span returns an axis range covering vs, widened when all values are equal.
func span(vs []float64) *chart.ContinuousRange {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}
