package assistant

import "strings"

// Routed intents.
const (
	IntentExplain   = "explain"
	IntentDataQuery = "data_query"
	IntentCustomSQL = "custom_sql"
	IntentGeneral   = "general"
)

// Keyword rules, checked in priority order. This is a best-effort classifier:
// a conceptual question that also mentions data nouns routes to data_query.
var (
	explainPhrases = []string{
		"what is", "what are", "explain", "define", "how does", "tell me about",
	}
	dataQueryPhrases = []string{
		"show", "get", "list", "find", "query", "select", "how many",
		"give me", "display", "trades", "deals", "records", "data",
	}
)

// Classify routes a message to one of the four intents. First match wins:
// explain phrases, then embedded SQL, then data-query phrases, then general.
// The embedded-SQL check runs ahead of the data-query phrases because
// "select" belongs to both rule sets and a literal statement must not be
// re-generated.
func Classify(message string) string {
	lower := strings.ToLower(message)
	for _, phrase := range explainPhrases {
		if strings.Contains(lower, phrase) {
			return IntentExplain
		}
	}
	if strings.Contains(lower, "select") && (strings.Contains(lower, "from") || strings.Contains(lower, "where")) {
		return IntentCustomSQL
	}
	for _, phrase := range dataQueryPhrases {
		if strings.Contains(lower, phrase) {
			return IntentDataQuery
		}
	}
	return IntentGeneral
}
