package nlsql

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	dottedChain  = regexp.MustCompile(`\b[A-Za-z_]\w*(?:\.[A-Za-z_]\w*){2,}\b`)
	limitPresent = regexp.MustCompile(`(?i)\bLIMIT\b`)

	explicitCountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btop\s+(\d+)\b`),
		regexp.MustCompile(`(?i)\bfirst\s+(\d+)\b`),
		regexp.MustCompile(`(?i)\blast\s+(\d+)\b`),
		regexp.MustCompile(`(?i)\bshow\s+me\s+(\d+)\b`),
		regexp.MustCompile(`(?i)\bgive\s+me\s+(\d+)\b`),
		regexp.MustCompile(`(?i)\bget\s+(\d+)\b`),
		regexp.MustCompile(`(?i)\blimit\s+(?:to\s+)?(\d+)\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s+(?:records?|rows?|results?|trades?|deals?|entries)\b`),
	}

	spelledCount = regexp.MustCompile(
		`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten)\s+(?:records?|rows?|results?|trades?|deals?|entries)\b`)

	summaryHint = regexp.MustCompile(`(?i)\b(summary|summarize|overview|total|totals|count|aggregate)\b`)
	recentHint  = regexp.MustCompile(`(?i)\b(recent|latest|newest)\b`)
)

var spelledNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// InferRowCap derives a LIMIT value from the wording of a request. Explicit
// quantities ("top 5", "show me 7 trades", "three records") win; otherwise
// summary-flavored requests get 100, recency-flavored ones 20, the rest 10.
func InferRowCap(request string) int {
	for _, pat := range explicitCountPatterns {
		if m := pat.FindStringSubmatch(request); m != nil {
			var n int
			if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil && n > 0 {
				return n
			}
		}
	}
	if m := spelledCount.FindStringSubmatch(request); m != nil {
		if n, ok := spelledNumbers[strings.ToLower(m[1])]; ok {
			return n
		}
	}
	if summaryHint.MatchString(request) {
		return 100
	}
	if recentHint.MatchString(request) {
		return 20
	}
	return 10
}

// Normalizer rewrites generated SQL so every table reference uses the
// canonical catalog.schema.table form and a row cap is always present.
type Normalizer struct {
	catalog string
	schema  string
}

func NewNormalizer(catalog, schema string) *Normalizer {
	return &Normalizer{catalog: catalog, schema: schema}
}

// Normalize applies the qualification fix-up and row-cap enforcement passes.
// tables lists the known warehouse table names used to qualify bare
// identifiers. Normalizing an already-normalized statement is a no-op.
func (n *Normalizer) Normalize(sql, request string, tables []string) string {
	out := strings.TrimSpace(sql)
	out = strings.TrimRight(out, "; \t\n")
	out = n.fixQualification(out, tables)
	if !limitPresent.MatchString(out) {
		out = fmt.Sprintf("%s LIMIT %d", out, InferRowCap(request))
	}
	return out
}

func (n *Normalizer) fixQualification(sql string, tables []string) string {
	out := dottedChain.ReplaceAllStringFunc(sql, func(chain string) string {
		parts := strings.Split(chain, ".")
		return n.qualified(parts[len(parts)-1])
	})
	for _, table := range tables {
		pat := regexp.MustCompile(`(?i)(^|[^.\w])(` + regexp.QuoteMeta(table) + `)($|[^.\w])`)
		out = pat.ReplaceAllString(out, `${1}`+n.qualified(table)+`${3}`)
	}
	return out
}

func (n *Normalizer) qualified(table string) string {
	return n.catalog + "." + n.schema + "." + strings.ToLower(table)
}
