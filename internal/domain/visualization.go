package domain

import "encoding/json"

// Visualization variants.
const (
	VisualizationChart = "chart"
	VisualizationTable = "table"
)

// Chart types.
const (
	ChartPie     = "pie"
	ChartBar     = "bar"
	ChartLine    = "line"
	ChartScatter = "scatter"
)

// ChartTypes lists the supported chart types.
var ChartTypes = []string{ChartPie, ChartBar, ChartLine, ChartScatter}

// IsChartType reports whether t names a supported chart.
func IsChartType(t string) bool {
	for _, c := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}

// Point is one labelled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// XYPoint is one point of a scatter chart.
type XYPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Visualization is either a chart or a table; Type selects the populated
// fields. Scatter charts carry Points, every other chart carries Data.
// ErrorMessage explains a degraded artifact.
type Visualization struct {
	Type         string    `json:"type"`
	ChartType    string    `json:"chartType,omitempty"`
	Data         []Point   `json:"data,omitempty"`
	Points       []XYPoint `json:"-"`
	Headers      []string  `json:"headers,omitempty"`
	Rows         [][]any   `json:"rows,omitempty"`
	TextSummary  string    `json:"text_summary"`
	Error        bool      `json:"error,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// IsChart reports whether v is the chart variant.
func (v Visualization) IsChart() bool {
	return v.Type == VisualizationChart
}

// IsScatter reports whether v is a scatter chart.
func (v Visualization) IsScatter() bool {
	return v.IsChart() && v.ChartType == ChartScatter
}

// Failed marks v as a degraded artifact caused by err.
func (v Visualization) Failed(err error) Visualization {
	v.Error = true
	if err != nil {
		v.ErrorMessage = err.Error()
	}
	return v
}

// NewTable builds a table variant; nil rows become an empty slice.
func NewTable(headers []string, rows [][]any, summary string) Visualization {
	if headers == nil {
		headers = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return Visualization{
		Type:        VisualizationTable,
		Headers:     headers,
		Rows:        rows,
		TextSummary: summary,
	}
}

// NewScatter builds a scatter chart variant.
func NewScatter(points []XYPoint, summary string) Visualization {
	if points == nil {
		points = []XYPoint{}
	}
	return Visualization{
		Type:        VisualizationChart,
		ChartType:   ChartScatter,
		Points:      points,
		TextSummary: summary,
	}
}

// NewChart builds a chart variant.
func NewChart(chartType string, data []Point, summary string) Visualization {
	if data == nil {
		data = []Point{}
	}
	return Visualization{
		Type:        VisualizationChart,
		ChartType:   chartType,
		Data:        data,
		TextSummary: summary,
	}
}

type chartJSON struct {
	Type         string `json:"type"`
	ChartType    string `json:"chartType"`
	Data         any    `json:"data"`
	TextSummary  string `json:"text_summary"`
	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type tableJSON struct {
	Type         string   `json:"type"`
	Headers      []string `json:"headers"`
	Rows         [][]any  `json:"rows"`
	TextSummary  string   `json:"text_summary"`
	Error        bool     `json:"error,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// MarshalJSON writes only the fields of the active variant.
func (v Visualization) MarshalJSON() ([]byte, error) {
	if v.IsChart() {
		var data any = v.Data
		switch {
		case v.IsScatter() && v.Points == nil:
			data = []XYPoint{}
		case v.IsScatter():
			data = v.Points
		case v.Data == nil:
			data = []Point{}
		}
		return json.Marshal(chartJSON{
			Type:         v.Type,
			ChartType:    v.ChartType,
			Data:         data,
			TextSummary:  v.TextSummary,
			Error:        v.Error,
			ErrorMessage: v.ErrorMessage,
		})
	}
	headers, rows := v.Headers, v.Rows
	if headers == nil {
		headers = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return json.Marshal(tableJSON{
		Type:         VisualizationTable,
		Headers:      headers,
		Rows:         rows,
		TextSummary:  v.TextSummary,
		Error:        v.Error,
		ErrorMessage: v.ErrorMessage,
	})
}

// UnmarshalJSON reads either variant; scatter data decodes into Points.
func (v *Visualization) UnmarshalJSON(b []byte) error {
	var aux struct {
		Type         string          `json:"type"`
		ChartType    string          `json:"chartType"`
		Data         json.RawMessage `json:"data"`
		Headers      []string        `json:"headers"`
		Rows         [][]any         `json:"rows"`
		TextSummary  string          `json:"text_summary"`
		Error        bool            `json:"error"`
		ErrorMessage string          `json:"error_message"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*v = Visualization{
		Type:         aux.Type,
		ChartType:    aux.ChartType,
		Headers:      aux.Headers,
		Rows:         aux.Rows,
		TextSummary:  aux.TextSummary,
		Error:        aux.Error,
		ErrorMessage: aux.ErrorMessage,
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}
	if v.IsScatter() {
		return json.Unmarshal(aux.Data, &v.Points)
	}
	return json.Unmarshal(aux.Data, &v.Data)
}
