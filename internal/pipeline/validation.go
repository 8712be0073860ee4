package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

type rawPoint struct {
	Label *string  `json:"label"`
	Value *float64 `json:"value"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

type rawVisualization struct {
	Type        string      `json:"type"`
	ChartType   *string     `json:"chartType"`
	Data        *[]rawPoint `json:"data"`
	Headers     *[]string   `json:"headers"`
	Rows        *[][]any    `json:"rows"`
	TextSummary string      `json:"text_summary"`
}

// parseVisualization decodes a model artifact and checks the keys its variant requires.
func parseVisualization(data []byte) (domain.Visualization, error) {
	var raw rawVisualization
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return domain.Visualization{}, domain.NewStageError(domain.KindParseFailure, fmt.Errorf("parseVisualization: decode: %w", err))
	}

	switch raw.Type {
	case domain.VisualizationChart:
		if raw.ChartType == nil || !domain.IsChartType(*raw.ChartType) {
			return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "chart without a valid chartType")
		}
		if raw.Data == nil {
			return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "chart without data")
		}
		if *raw.ChartType == domain.ChartScatter {
			return scatterChart(*raw.Data, raw.TextSummary)
		}
		points := make([]domain.Point, 0, len(*raw.Data))
		for i, p := range *raw.Data {
			if p.Label == nil || p.Value == nil {
				return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "%s point %d needs label and value", *raw.ChartType, i)
			}
			points = append(points, domain.Point{Label: *p.Label, Value: *p.Value})
		}
		return domain.NewChart(*raw.ChartType, points, raw.TextSummary), nil
	case domain.VisualizationTable:
		if raw.Headers == nil || raw.Rows == nil {
			return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "table without headers or rows")
		}
		for i, r := range *raw.Rows {
			if len(r) != len(*raw.Headers) {
				return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "table row %d has %d cells for %d headers", i, len(r), len(*raw.Headers))
			}
		}
		return domain.NewTable(*raw.Headers, *raw.Rows, raw.TextSummary), nil
	}
	return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "unknown artifact type %q", raw.Type)
}

func scatterChart(data []rawPoint, summary string) (domain.Visualization, error) {
	points := make([]domain.XYPoint, 0, len(data))
	for i, p := range data {
		if p.X == nil || p.Y == nil {
			return domain.Visualization{}, domain.StageErrorf(domain.KindContractViolation, "scatter point %d needs x and y", i)
		}
		xy := domain.XYPoint{X: *p.X, Y: *p.Y}
		if p.Label != nil {
			xy.Label = *p.Label
		}
		points = append(points, xy)
	}
	return domain.NewScatter(points, summary), nil
}
