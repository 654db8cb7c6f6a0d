package viz

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

const maxPlotPoints = 50

// Renderer builds chart descriptors from query results.
type Renderer struct {
	width      int
	height     int
	maxPoints  int
	sampleRows int
}

func NewRenderer(width, height, sampleRows int) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 500
	}
	if sampleRows <= 0 {
		sampleRows = 10
	}
	return &Renderer{width: width, height: height, maxPoints: maxPlotPoints, sampleRows: sampleRows}
}

// Build renders a chart for a request when it asks for one and the result
// has rows. Returns nil when no chart applies.
func (r *Renderer) Build(request string, columns []string, rows []map[string]string) (*Descriptor, error) {
	if !WantsChart(request) || len(rows) == 0 {
		return nil, nil
	}

	chartType := InferType(request, columns, rows)
	labelCol, valueCol := r.pickColumns(columns, rows)
	if valueCol == "" {
		return nil, nil
	}

	labels, values := r.points(labelCol, valueCol, rows)
	if len(values) == 0 {
		return nil, nil
	}
	// Line and scatter plots need at least two points; pie slices must have
	// positive weight.
	if (chartType == TypeLine || chartType == TypeScatter) && len(values) < 2 {
		chartType = TypeBar
	}
	if chartType == TypePie && sum(values) <= 0 {
		chartType = TypeBar
	}

	title := chartTitle(request, valueCol)
	png, err := r.render(chartType, title, labels, values)
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", chartType, err)
	}

	sample := rows
	if len(sample) > r.sampleRows {
		sample = sample[:r.sampleRows]
	}
	return &Descriptor{
		Type:        chartType,
		Title:       title,
		ImageBase64: base64.StdEncoding.EncodeToString(png),
		SampleRows:  sample,
	}, nil
}

// pickColumns selects the label and value columns: the first date-like or
// non-numeric column carries labels, the first numeric column carries values.
func (r *Renderer) pickColumns(columns []string, rows []map[string]string) (label, value string) {
	numeric := numericColumns(columns, rows)
	if len(numeric) == 0 {
		return "", ""
	}
	value = numeric[0]
	if dates := dateColumns(columns); len(dates) > 0 {
		return dates[0], value
	}
	isNumeric := make(map[string]bool, len(numeric))
	for _, col := range numeric {
		isNumeric[col] = true
	}
	for _, col := range columns {
		if !isNumeric[col] {
			return col, value
		}
	}
	return columns[0], value
}

func (r *Renderer) points(labelCol, valueCol string, rows []map[string]string) ([]string, []float64) {
	var labels []string
	var values []float64
	for _, row := range rows {
		if len(values) == r.maxPoints {
			break
		}
		v, err := strconv.ParseFloat(row[valueCol], 64)
		if err != nil {
			continue
		}
		label := row[labelCol]
		if label == "" || label == "NULL" {
			label = fmt.Sprintf("row %d", len(values)+1)
		}
		labels = append(labels, label)
		values = append(values, v)
	}
	return labels, values
}

func (r *Renderer) render(chartType, title string, labels []string, values []float64) ([]byte, error) {
	var buf bytes.Buffer
	switch chartType {
	case TypePie:
		pie := chart.PieChart{
			Title:  title,
			Width:  r.width,
			Height: r.height,
			Values: chartValues(labels, values),
		}
		if err := pie.Render(chart.PNG, &buf); err != nil {
			return nil, err
		}
	case TypeLine:
		series, err := r.lineSeries(labels, values)
		if err != nil {
			return nil, err
		}
		graph := chart.Chart{Title: title, Width: r.width, Height: r.height, Series: []chart.Series{series}}
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, err
		}
	case TypeScatter:
		graph := chart.Chart{
			Title:  title,
			Width:  r.width,
			Height: r.height,
			Series: []chart.Series{chart.ContinuousSeries{
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5},
				XValues: indexValues(len(values)),
				YValues: values,
			}},
		}
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, err
		}
	default:
		bar := chart.BarChart{
			Title:    title,
			Width:    r.width,
			Height:   r.height,
			BarWidth: 40,
			Bars:     chartValues(labels, values),
		}
		if err := bar.Render(chart.PNG, &buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// lineSeries prefers a time axis when the labels parse as dates, falling
// back to row indexes otherwise.
func (r *Renderer) lineSeries(labels []string, values []float64) (chart.Series, error) {
	times := make([]time.Time, 0, len(labels))
	for _, label := range labels {
		t, err := parseTime(label)
		if err != nil {
			return chart.ContinuousSeries{XValues: indexValues(len(values)), YValues: values}, nil
		}
		times = append(times, t)
	}
	return chart.TimeSeries{XValues: times, YValues: values}, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func chartValues(labels []string, values []float64) []chart.Value {
	out := make([]chart.Value, len(values))
	for i, v := range values {
		out[i] = chart.Value{Label: labels[i], Value: v}
	}
	return out
}

func indexValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func chartTitle(request, valueCol string) string {
	trimmed := strings.TrimSpace(request)
	if len(trimmed) > 60 {
		trimmed = trimmed[:57] + "..."
	}
	if trimmed == "" {
		return valueCol
	}
	return trimmed
}
