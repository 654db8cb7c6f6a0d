package nlsql

import "strings"

var clauseStarts = []string{"SELECT", "WITH"}

var clauseContinuations = []string{
	"FROM", "WHERE", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS",
	"ON", "AND", "OR", "GROUP BY", "ORDER BY", "LIMIT", "HAVING",
}

// CleanCompletion recovers a single-line SQL statement from a raw model
// completion. It drops Markdown code fences and any prose the model wrapped
// around the statement, keeping only lines that begin a SQL clause or
// continue one. Returns "" when no statement can be recovered.
func CleanCompletion(raw string) string {
	var kept []string
	started := false
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "--") {
			continue
		}
		upper := strings.ToUpper(trimmed)
		switch {
		case hasClausePrefix(upper, clauseStarts):
			started = true
			kept = append(kept, trimmed)
		case started && hasClausePrefix(upper, clauseContinuations):
			kept = append(kept, trimmed)
		}
	}
	out := strings.Join(kept, " ")
	return strings.TrimRight(strings.TrimSpace(out), ";")
}

func hasClausePrefix(upper string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if upper == prefix {
			return true
		}
		if strings.HasPrefix(upper, prefix+" ") || strings.HasPrefix(upper, prefix+"(") {
			return true
		}
	}
	return false
}
