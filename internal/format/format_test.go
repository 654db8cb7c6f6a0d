package format

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func makeRows(n int, columns []string) []map[string]string {
	rows := make([]map[string]string, n)
	for i := range rows {
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			row[col] = col + "_v"
		}
		rows[i] = row
	}
	return rows
}

func TestTableUsesDetailedLayoutForSmallResults(t *testing.T) {
	columns := []string{"deal_num", "trade_date", "currency", "amount"}
	got := Table(columns, makeRows(3, columns))
	if !strings.Contains(got, "Record 1:") || !strings.Contains(got, "Record 3:") {
		t.Fatalf("Table() = %q, want detailed layout", got)
	}
	if strings.Contains(got, " | ") {
		t.Fatal("detailed layout must not use pipe delimiters")
	}
}

func TestTableUsesCompactLayoutForLargeResults(t *testing.T) {
	columns := []string{"deal_num", "trade_date", "currency", "amount"}
	got := Table(columns, makeRows(20, columns))
	if strings.Contains(got, "Record 1:") {
		t.Fatal("compact layout must not use record blocks")
	}
	if !strings.Contains(got, " | ") {
		t.Fatalf("Table() = %q, want pipe-delimited layout", got)
	}
	if !strings.Contains(got, "20 rows") {
		t.Fatal("compact layout should report the row count")
	}
}

func TestCompactLayoutCapsColumnCount(t *testing.T) {
	columns := []string{"deal_num", "tran_num", "trade_date", "currency", "amount", "volume", "price", "trader", "status", "notes"}
	got := Table(columns, makeRows(10, columns))
	header := strings.SplitN(got, "\n", 2)[0]
	if n := strings.Count(header, " | ") + 1; n > 6 {
		t.Fatalf("compact header has %d columns, want at most 6: %q", n, header)
	}
}

func TestSelectKeyColumnsPrefersPriorityNames(t *testing.T) {
	columns := []string{"notes", "trader", "amount", "trade_date", "deal_num", "internal_ref", "currency", "status"}
	got := SelectKeyColumns(columns, 6)
	if len(got) != 6 {
		t.Fatalf("SelectKeyColumns() = %v", got)
	}
	for _, want := range []string{"deal_num", "trade_date", "currency", "amount", "trader", "status"} {
		found := false
		for _, col := range got {
			if col == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("SelectKeyColumns() = %v, missing %q", got, want)
		}
	}
}

func TestSelectKeyColumnsPadsWithRemaining(t *testing.T) {
	columns := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	got := SelectKeyColumns(columns, 6)
	if len(got) != 6 || got[0] != "alpha" || got[5] != "zeta" {
		t.Fatalf("SelectKeyColumns() = %v", got)
	}
}

func TestTruncationBoundsCellLength(t *testing.T) {
	long := strings.Repeat("x", 300)
	columns := []string{"deal_num", "notes"}
	rows := []map[string]string{{"deal_num": "1", "notes": long}}
	got := Table(columns, rows)
	if strings.Contains(got, long) {
		t.Fatal("detailed cells must be truncated")
	}
	if !strings.Contains(got, "...") {
		t.Fatal("truncated cells should end with an ellipsis")
	}
}

func TestTruncationKeepsValidUTF8(t *testing.T) {
	// The 98th byte starts a three-byte rune, so a byte-offset cut at 97+3
	// would split it.
	long := strings.Repeat("x", 96) + strings.Repeat("€", 40)
	got := truncate(long, 100)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate() = %q, emitted invalid UTF-8", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate() = %q, want ellipsis suffix", got)
	}
	if len(got) > 100 {
		t.Fatalf("truncate() length = %d, want at most 100", len(got))
	}
}

func TestTableEmptyResult(t *testing.T) {
	got := Table([]string{"deal_num"}, nil)
	if !strings.Contains(got, "No matching records") {
		t.Fatalf("Table() = %q", got)
	}
}
