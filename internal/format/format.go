package format

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	detailedMaxRows    = 5
	detailedMaxColumns = 8
	compactMaxColumns  = 6

	detailedCellLimit = 100
	compactCellLimit  = 25
)

// keyColumnPriority orders the column-name fragments used to pick the
// columns shown in compact layout.
var keyColumnPriority = []string{
	"deal", "tran", "date", "currency", "amount",
	"volume", "price", "trader", "buy_sell", "side", "status",
}

// Table renders a query result as text. Small results (at most 5 rows and 8
// columns) get one labeled block per row; anything larger becomes a compact
// pipe-delimited table restricted to at most 6 key columns.
func Table(columns []string, rows []map[string]string) string {
	if len(rows) == 0 {
		return "No matching records were found."
	}
	if len(rows) <= detailedMaxRows && len(columns) <= detailedMaxColumns {
		return detailed(columns, rows)
	}
	return compact(columns, rows)
}

func detailed(columns []string, rows []map[string]string) string {
	var b strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&b, "Record %d:\n", i+1)
		for _, col := range columns {
			fmt.Fprintf(&b, "  %s: %s\n", col, truncate(row[col], detailedCellLimit))
		}
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func compact(columns []string, rows []map[string]string) string {
	selected := SelectKeyColumns(columns, compactMaxColumns)

	widths := make([]int, len(selected))
	cells := make([][]string, len(rows))
	for i, col := range selected {
		widths[i] = len(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(selected))
		for i, col := range selected {
			cell := truncate(row[col], compactCellLimit)
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], v)
		}
		b.WriteString("\n")
	}
	writeRow(selected)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteString("\n")
	for _, row := range cells {
		writeRow(row)
	}
	fmt.Fprintf(&b, "\n%d rows", len(rows))
	return b.String()
}

// SelectKeyColumns picks up to max display columns: priority-name matches
// first, then the remaining columns in their original order.
func SelectKeyColumns(columns []string, max int) []string {
	if len(columns) <= max {
		return columns
	}
	selected := make([]string, 0, max)
	used := make(map[string]bool, max)
	for _, key := range keyColumnPriority {
		for _, col := range columns {
			if used[col] || !strings.Contains(strings.ToLower(col), key) {
				continue
			}
			selected = append(selected, col)
			used[col] = true
			if len(selected) == max {
				return selected
			}
			break
		}
	}
	for _, col := range columns {
		if used[col] {
			continue
		}
		selected = append(selected, col)
		used[col] = true
		if len(selected) == max {
			break
		}
	}
	return selected
}

// truncate shortens s to at most limit bytes without splitting a multi-byte
// character at the cut.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
