package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydesk/querydesk/internal/conversation"
	"github.com/querydesk/querydesk/internal/format"
	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/nlsql"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/schema"
	"github.com/querydesk/querydesk/internal/viz"
	"github.com/querydesk/querydesk/internal/warehouse"
)

// SQLGenerator produces executable SQL from a natural-language request.
type SQLGenerator interface {
	Generate(ctx context.Context, request, contextPrefix string) (string, error)
}

// QueryExecutor runs a validated statement against the warehouse.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (warehouse.Result, error)
}

// ChartBuilder optionally renders a chart for a result.
type ChartBuilder interface {
	Build(request string, columns []string, rows []map[string]string) (*viz.Descriptor, error)
}

// SnapshotProvider supplies the current warehouse schema.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) schema.Snapshot
}

// Options wires an Assistant. Chat, Generator, Executor and Charts may each
// be nil when the backing capability is not configured; the affected intents
// degrade to an explanatory reply instead of failing.
type Options struct {
	Chat            llm.Client
	Generator       SQLGenerator
	Executor        QueryExecutor
	Charts          ChartBuilder
	Conversations   *conversation.Store
	Schema          SnapshotProvider
	Catalog         string
	SchemaName      string
	ChatTemperature float64
	MaxTokens       int
	Logger          *slog.Logger
}

// Response is the user-facing outcome of one message.
type Response struct {
	Intent    string              `json:"intent"`
	Text      string              `json:"text"`
	SQL       string              `json:"sql,omitempty"`
	Columns   []string            `json:"columns,omitempty"`
	Rows      []map[string]string `json:"rows,omitempty"`
	Chart     *viz.Descriptor     `json:"chart,omitempty"`
	Simulated bool                `json:"simulated,omitempty"`
}

// Assistant routes user messages to the explain, data-query, custom-SQL and
// general handlers. It is the last line that turns typed errors into
// user-visible text; Handle never returns an error to its caller.
type Assistant struct {
	chat            llm.Client
	generator       SQLGenerator
	executor        QueryExecutor
	charts          ChartBuilder
	conversations   *conversation.Store
	schema          SnapshotProvider
	normalizer      *nlsql.Normalizer
	chatTemperature float64
	maxTokens       int
	logger          *slog.Logger
}

func New(opts Options) *Assistant {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conversations := opts.Conversations
	if conversations == nil {
		conversations = conversation.NewStore(0, 0)
	}
	chatTemperature := opts.ChatTemperature
	if chatTemperature <= 0 {
		chatTemperature = 0.7
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 700
	}
	catalog := opts.Catalog
	if catalog == "" {
		catalog = "trade_catalog"
	}
	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "trade_schema"
	}
	return &Assistant{
		chat:            opts.Chat,
		generator:       opts.Generator,
		executor:        opts.Executor,
		charts:          opts.Charts,
		conversations:   conversations,
		schema:          opts.Schema,
		normalizer:      nlsql.NewNormalizer(catalog, schemaName),
		chatTemperature: chatTemperature,
		maxTokens:       maxTokens,
		logger:          logger,
	}
}

// Handle processes one user message within a conversation.
func (a *Assistant) Handle(ctx context.Context, message, conversationID string) Response {
	intent := Classify(message)
	observability.ObserveIntent(intent)
	a.logger.InfoContext(ctx, "message routed", "intent", intent, "conversation", conversationID)

	contextPrefix := a.conversations.ContextPrefix(conversationID)
	a.conversations.Append(conversationID, conversation.RoleUser, message)

	var resp Response
	switch intent {
	case IntentExplain:
		resp = a.handleExplain(ctx, message)
	case IntentDataQuery:
		resp = a.handleDataQuery(ctx, conversationID, message, contextPrefix)
	case IntentCustomSQL:
		resp = a.handleCustomSQL(ctx, conversationID, message)
	default:
		resp = a.handleGeneral(ctx, message, contextPrefix)
	}
	resp.Intent = intent

	a.conversations.Append(conversationID, conversation.RoleAssistant, historyPreview(resp.Text))
	return resp
}

// historyPreviewLimit bounds how much of a reply is kept in conversation
// history. Replies carrying formatted tables can run long and would crowd the
// context window on later turns.
const historyPreviewLimit = 500

func historyPreview(text string) string {
	if len(text) <= historyPreviewLimit {
		return text
	}
	return text[:historyPreviewLimit] + "..."
}

func (a *Assistant) handleExplain(ctx context.Context, message string) Response {
	const system = "You are an assistant for a trading analytics team. " +
		"Explain trading and market concepts clearly and briefly, in plain language."
	return a.chatReply(ctx, system, message,
		"I can't provide explanations right now: no language model is configured.")
}

func (a *Assistant) handleGeneral(ctx context.Context, message, contextPrefix string) Response {
	const system = "You are an assistant for a trading analytics team. " +
		"Answer conversationally. If the user seems to want data, suggest asking a question about trades."
	prompt := message
	if contextPrefix != "" {
		prompt = contextPrefix + "\n\nCurrent message: " + message
	}
	return a.chatReply(ctx, system, prompt,
		"Hello! Ask me about your trades, for example \"show me recent trades\" or \"total volume by currency\".")
}

func (a *Assistant) chatReply(ctx context.Context, system, prompt, fallback string) Response {
	if a.chat == nil {
		return Response{Text: fallback}
	}
	text, err := a.chat.Complete(ctx, llm.Request{
		SystemPrompt: system,
		UserPrompt:   prompt,
		Temperature:  a.chatTemperature,
		MaxTokens:    a.maxTokens,
	})
	if err != nil {
		a.logger.WarnContext(ctx, "chat completion failed", "error", err)
		return Response{Text: "I'm having trouble reaching the language model right now. Please try again shortly."}
	}
	return Response{Text: strings.TrimSpace(text)}
}

func (a *Assistant) handleDataQuery(ctx context.Context, conversationID, message, contextPrefix string) Response {
	if a.generator == nil {
		return Response{Text: "Natural-language querying is not configured on this deployment. " +
			"You can still submit SQL directly, for example: SELECT * FROM trades LIMIT 10."}
	}

	request := message
	if pending, ok := a.conversations.PendingClarification(conversationID); ok {
		request = pending.OriginalRequest + "\nClarification from the user: " + message
		a.conversations.ClearPendingClarification(conversationID)
	}

	sqlText, err := a.generator.Generate(ctx, request, contextPrefix)
	if err != nil {
		var genErr *nlsql.GenerationError
		if errors.As(err, &genErr) {
			return Response{Text: fmt.Sprintf("Sorry, I couldn't turn that into a query: %s. "+
				"Try rephrasing, or name the columns you're interested in.", genErr.Reason)}
		}
		a.logger.ErrorContext(ctx, "sql generation failed", "error", err)
		return Response{Text: "Sorry, I couldn't turn that into a query. Please try rephrasing."}
	}

	return a.runQuery(ctx, conversationID, message, sqlText)
}

func (a *Assistant) handleCustomSQL(ctx context.Context, conversationID, message string) Response {
	sqlText := extractSQL(message)
	if !nlsql.IsSafe(sqlText) {
		observability.IncrementUnsafeQuery()
		a.logger.WarnContext(ctx, "custom sql rejected", "sql", sqlText)
		return Response{Text: (&nlsql.UnsafeQueryError{SQL: sqlText}).Error()}
	}
	sqlText = a.normalizer.Normalize(sqlText, message, a.tableNames(ctx))
	return a.runQuery(ctx, conversationID, message, sqlText)
}

func (a *Assistant) runQuery(ctx context.Context, conversationID, message, sqlText string) Response {
	if a.executor == nil {
		result := SimulatedResult()
		text := format.Table(result.Columns, result.Rows) +
			"\n\n(simulated data: the warehouse is not configured)"
		return Response{Text: text, SQL: sqlText, Columns: result.Columns, Rows: result.Rows, Simulated: true}
	}

	result, err := a.executor.Execute(ctx, sqlText)
	if err != nil {
		return a.executionFailure(ctx, conversationID, message, sqlText, err)
	}

	resp := Response{
		Text:    format.Table(result.Columns, result.Rows),
		SQL:     sqlText,
		Columns: result.Columns,
		Rows:    result.Rows,
	}
	if a.charts != nil {
		chart, err := a.charts.Build(message, result.Columns, result.Rows)
		if err != nil {
			a.logger.WarnContext(ctx, "chart rendering failed", "error", err)
		} else if chart != nil {
			observability.ObserveChartRendered(chart.Type)
			resp.Chart = chart
		}
	}
	return resp
}

func (a *Assistant) executionFailure(ctx context.Context, conversationID, message, sqlText string, err error) Response {
	detail := err.Error()
	var execErr *warehouse.ExecutionError
	if errors.As(err, &execErr) {
		detail = execErr.Err.Error()
	}

	suggestions := a.suggestColumns(ctx, detail)
	a.conversations.SetPendingClarification(conversationID, conversation.PendingClarification{
		OriginalRequest: message,
		ErrorDetail:     detail,
		Suggestions:     suggestions,
	})

	var b strings.Builder
	fmt.Fprintf(&b, "The query failed: %s\n\nSQL I ran:\n%s", detail, sqlText)
	if len(suggestions) > 0 {
		fmt.Fprintf(&b, "\n\nDid you mean one of these columns? %s", strings.Join(suggestions, ", "))
	}
	b.WriteString("\n\nReply with the correct column name and I'll retry.")
	return Response{Text: b.String(), SQL: sqlText}
}

func (a *Assistant) suggestColumns(ctx context.Context, errDetail string) []string {
	if a.schema == nil {
		return nil
	}
	token := offendingColumn(errDetail)
	if token == "" {
		return nil
	}
	return SuggestColumns(a.schema.Snapshot(ctx), token, 5)
}

func (a *Assistant) tableNames(ctx context.Context) []string {
	if a.schema == nil {
		return nil
	}
	return a.schema.Snapshot(ctx).TableNames()
}

// extractSQL pulls the statement out of a message that may carry prose
// ahead of it, like "run this: SELECT ...".
func extractSQL(message string) string {
	trimmed := strings.TrimSpace(message)
	upper := strings.ToUpper(trimmed)
	start := -1
	for _, kw := range []string{"SELECT", "WITH"} {
		if idx := strings.Index(upper, kw); idx >= 0 && (start < 0 || idx < start) {
			start = idx
		}
	}
	if start < 0 {
		return trimmed
	}
	return strings.TrimSpace(trimmed[start:])
}
