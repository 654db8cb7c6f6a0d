package assistant

import (
	"regexp"
	"strings"

	"github.com/querydesk/querydesk/internal/schema"
)

// Patterns covering the column-not-found messages of the supported drivers.
var columnErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`column "([\w.]+)" does not exist`),
	regexp.MustCompile(`(?i)could not resolve column(?:/field)? "?([\w.]+)"?`),
	regexp.MustCompile(`(?i)unknown column '?([\w.]+)'?`),
	regexp.MustCompile(`(?i)referenced column "([\w.]+)"`),
	regexp.MustCompile(`(?i)binder error.*?"([\w.]+)"`),
}

// offendingColumn extracts the unresolved identifier from a driver error
// message, or "" when none is recognizable.
func offendingColumn(errDetail string) string {
	for _, pat := range columnErrorPatterns {
		if m := pat.FindStringSubmatch(errDetail); m != nil {
			name := m[1]
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			return name
		}
	}
	return ""
}

// SuggestColumns lists schema columns resembling the unresolved identifier,
// best matches first, capped at max.
func SuggestColumns(snap schema.Snapshot, token string, max int) []string {
	needle := squash(token)
	if needle == "" {
		return nil
	}

	type scored struct {
		name  string
		score int
	}
	var candidates []scored
	seen := make(map[string]bool)
	for _, table := range snap.TableNames() {
		for _, name := range snap.ColumnNames(table) {
			if seen[name] {
				continue
			}
			hay := squash(name)
			score := 0
			switch {
			case hay == needle:
				score = 3
			case strings.Contains(hay, needle) || strings.Contains(needle, hay):
				score = 2
			case sharedPrefix(hay, needle) >= 3:
				score = 1
			}
			if score > 0 {
				seen[name] = true
				candidates = append(candidates, scored{name: name, score: score})
			}
		}
	}

	out := make([]string, 0, max)
	for score := 3; score >= 1 && len(out) < max; score-- {
		for _, c := range candidates {
			if c.score == score {
				out = append(out, c.name)
				if len(out) == max {
					break
				}
			}
		}
	}
	return out
}

// squash lowercases and drops separators so deal_num, dealNum and "deal num"
// all compare equal.
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
