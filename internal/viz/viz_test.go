package viz

import "testing"

func statusRows() []map[string]string {
	return []map[string]string{
		{"status": "VALIDATED", "cnt": "12"},
		{"status": "NEW", "cnt": "7"},
		{"status": "CANCELLED", "cnt": "3"},
	}
}

func TestWantsChart(t *testing.T) {
	cases := map[string]bool{
		"show me a pie chart of status distribution": true,
		"plot volume by trader":                      true,
		"top 5 traders by volume":                    true,
		"list trades":                                false,
		"show me recent trades":                      false,
	}
	for request, want := range cases {
		if got := WantsChart(request); got != want {
			t.Errorf("WantsChart(%q) = %v, want %v", request, got, want)
		}
	}
}

func TestInferTypePhraseRules(t *testing.T) {
	columns := []string{"status", "cnt"}
	rows := statusRows()
	cases := map[string]string{
		"pie chart of status distribution": TypePie,
		"volume trend by month":            TypeBar,
		"compare volume by trader":         TypeBar,
		"correlation of price and volume":  TypeScatter,
	}
	for request, want := range cases {
		if got := InferType(request, columns, rows); got != want {
			t.Errorf("InferType(%q) = %q, want %q", request, got, want)
		}
	}
}

func TestInferTypeFromDataShape(t *testing.T) {
	dateRows := []map[string]string{
		{"trade_date": "2026-03-01", "amount": "10.5"},
		{"trade_date": "2026-03-02", "amount": "11.0"},
	}
	if got := InferType("chart the amounts", []string{"trade_date", "amount"}, dateRows); got != TypeLine {
		t.Fatalf("date plus numeric column = %q, want line", got)
	}

	twoNumeric := []map[string]string{
		{"price": "10.5", "volume": "100"},
		{"price": "11.0", "volume": "90"},
	}
	if got := InferType("chart price and volume", []string{"price", "volume"}, twoNumeric); got != TypeScatter {
		t.Fatalf("two numeric columns = %q, want scatter", got)
	}

	if got := InferType("chart the counts", []string{"status", "cnt"}, statusRows()); got != TypePie {
		t.Fatalf("small result with one numeric column = %q, want pie", got)
	}
}

func TestBuildReturnsNilWithoutChartIntent(t *testing.T) {
	r := NewRenderer(0, 0, 0)
	desc, err := r.Build("list trades", []string{"status", "cnt"}, statusRows())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if desc != nil {
		t.Fatalf("Build() = %+v, want nil", desc)
	}
}

func TestBuildReturnsNilForEmptyRows(t *testing.T) {
	r := NewRenderer(0, 0, 0)
	desc, err := r.Build("pie chart of status distribution", []string{"status", "cnt"}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if desc != nil {
		t.Fatalf("Build() = %+v, want nil", desc)
	}
}

func TestBuildRendersPieChart(t *testing.T) {
	r := NewRenderer(400, 300, 50)
	desc, err := r.Build("show me a pie chart of status distribution", []string{"status", "cnt"}, statusRows())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if desc == nil {
		t.Fatal("Build() = nil, want a descriptor")
	}
	if desc.Type != TypePie {
		t.Fatalf("Type = %q, want pie", desc.Type)
	}
	if desc.ImageBase64 == "" {
		t.Fatal("ImageBase64 should carry the encoded PNG")
	}
	if len(desc.SampleRows) != 3 {
		t.Fatalf("SampleRows = %d, want 3", len(desc.SampleRows))
	}
}

func TestBuildBoundsSampleRows(t *testing.T) {
	rows := make([]map[string]string, 25)
	for i := range rows {
		rows[i] = map[string]string{"trader": "t", "amount": "1.0"}
	}
	r := NewRenderer(400, 300, 0)
	desc, err := r.Build("bar chart of amounts by trader", []string{"trader", "amount"}, rows)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if desc == nil {
		t.Fatal("Build() = nil, want a descriptor")
	}
	if len(desc.SampleRows) != 10 {
		t.Fatalf("SampleRows = %d, want 10", len(desc.SampleRows))
	}
}
