package viz

import (
	"strconv"
	"strings"
)

// Chart types.
const (
	TypeBar     = "bar"
	TypeLine    = "line"
	TypePie     = "pie"
	TypeScatter = "scatter"
)

// Descriptor describes a rendered chart: its type, a PNG payload encoded as
// base64, a title, and a small sample of the rows behind it.
type Descriptor struct {
	Type        string              `json:"type"`
	Title       string              `json:"title"`
	ImageBase64 string              `json:"image_base64"`
	SampleRows  []map[string]string `json:"sample_rows"`
}

var chartKeywords = []string{
	"chart", "graph", "plot", "visualize", "visualise", "trend",
	"distribution", "compare", "comparison", "top", "ranking", "breakdown",
}

var (
	trendPhrases        = []string{"trend", "over time", "timeline", "history"}
	distributionPhrases = []string{"distribution", "breakdown", "proportion", "share", "pie"}
	comparisonPhrases   = []string{"compare", "comparison", "versus", " vs ", "against"}
	relationshipPhrases = []string{"relationship", "correlation", "scatter"}
)

// WantsChart reports whether a request asks for a visualization. A chart is
// only produced when this returns true and the result has rows.
func WantsChart(request string) bool {
	lower := strings.ToLower(request)
	for _, kw := range chartKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// InferType picks a chart type for a request and its result rows. Phrase
// rules are checked in priority order before falling back to the shape of
// the data.
func InferType(request string, columns []string, rows []map[string]string) string {
	lower := strings.ToLower(request)
	switch {
	case containsAny(lower, trendPhrases):
		return TypeBar
	case containsAny(lower, distributionPhrases):
		return TypePie
	case containsAny(lower, comparisonPhrases):
		return TypeBar
	case containsAny(lower, relationshipPhrases):
		return TypeScatter
	}

	dateCols := dateColumns(columns)
	numericCols := numericColumns(columns, rows)
	switch {
	case len(dateCols) > 0 && len(numericCols) > 0:
		return TypeLine
	case len(numericCols) >= 2:
		return TypeScatter
	case len(rows) <= 10 && len(numericCols) == 1:
		return TypePie
	case len(numericCols) == 1:
		return TypeBar
	}
	return TypeBar
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

var dateNameFragments = []string{"date", "time", "year", "month", "day"}

func dateColumns(columns []string) []string {
	var out []string
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, frag := range dateNameFragments {
			if strings.Contains(lower, frag) {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// numericColumns reports the columns whose every non-NULL sampled value
// parses as a number. Date-like columns are excluded even when their values
// are numeric.
func numericColumns(columns []string, rows []map[string]string) []string {
	dates := make(map[string]bool)
	for _, col := range dateColumns(columns) {
		dates[col] = true
	}
	var out []string
	for _, col := range columns {
		if dates[col] {
			continue
		}
		if isNumericColumn(col, rows) {
			out = append(out, col)
		}
	}
	return out
}

func isNumericColumn(col string, rows []map[string]string) bool {
	seen := false
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == "NULL" || v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
