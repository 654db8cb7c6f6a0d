package nlsql

import (
	"regexp"
	"strings"
)

var (
	readOnlyPrefix = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)

	destructiveKeywords = regexp.MustCompile(
		`(?i)\b(DROP|DELETE|UPDATE|INSERT|ALTER|TRUNCATE|CREATE|MODIFY|GRANT|REVOKE|EXEC|EXECUTE|MERGE|REPLACE|COMMIT|ROLLBACK)\b`)

	injectionSignatures = []*regexp.Regexp{
		regexp.MustCompile(`;\s*--`),
		regexp.MustCompile(`;\s*#`),
		regexp.MustCompile(`;\s*/\*`),
		regexp.MustCompile(`(?i)\bUNION\b.*\bSELECT\b`),
		regexp.MustCompile(`(?i)\bxp_\w+`),
		regexp.MustCompile(`(?i)\bsp_\w+`),
		regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b`),
	}
)

// IsSafe reports whether a SQL statement is acceptable for execution. It only
// admits read-only statements: the text must start with SELECT or WITH, carry
// no destructive keyword as a whole word, and match none of the known
// injection signatures. IsSafe never panics and depends only on its input.
func IsSafe(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return false
	}
	if !readOnlyPrefix.MatchString(trimmed) {
		return false
	}
	if destructiveKeywords.MatchString(trimmed) {
		return false
	}
	for _, sig := range injectionSignatures {
		if sig.MatchString(trimmed) {
			return false
		}
	}
	return true
}
