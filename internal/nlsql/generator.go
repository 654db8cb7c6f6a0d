package nlsql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/schema"
)

// SnapshotProvider supplies the current warehouse schema. *schema.Cache
// satisfies it.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) schema.Snapshot
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Client      llm.Client
	Schema      SnapshotProvider
	Catalog     string
	SchemaName  string
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

// Generator turns natural-language requests into executable SQL. Every
// candidate statement runs through the safety validator and the normalizer
// before it is returned.
type Generator struct {
	client      llm.Client
	schema      SnapshotProvider
	normalizer  *Normalizer
	catalog     string
	schemaName  string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func NewGenerator(opts GeneratorOptions) (*Generator, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if opts.Schema == nil {
		return nil, fmt.Errorf("schema provider is required")
	}
	if opts.Catalog == "" || opts.SchemaName == "" {
		return nil, fmt.Errorf("catalog and schema are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Generator{
		client:      opts.Client,
		schema:      opts.Schema,
		normalizer:  NewNormalizer(opts.Catalog, opts.SchemaName),
		catalog:     opts.Catalog,
		schemaName:  opts.SchemaName,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}, nil
}

// Generate produces an executable query for a natural-language request.
// contextPrefix carries recent conversation turns and may be empty. Fails
// with *GenerationError when the model is unreachable, returns no usable
// statement, or the cleaned candidate is rejected by the validator.
func (g *Generator) Generate(ctx context.Context, request, contextPrefix string) (string, error) {
	snap := g.schema.Snapshot(ctx)

	userPrompt := request
	if contextPrefix != "" {
		userPrompt = contextPrefix + "\n\nCurrent question: " + request
	}

	raw, err := g.client.Complete(ctx, llm.Request{
		SystemPrompt: g.systemPrompt(snap),
		UserPrompt:   userPrompt,
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
	})
	if err != nil {
		observability.ObserveSQLGeneration("error")
		return "", &GenerationError{Reason: "the language model is unavailable", Err: err}
	}

	candidate := CleanCompletion(raw)
	if candidate == "" {
		observability.ObserveSQLGeneration("empty")
		g.logger.WarnContext(ctx, "no sql statement in completion", "completion", raw)
		return "", &GenerationError{Reason: "the model returned no usable SQL statement"}
	}
	if !IsSafe(candidate) {
		observability.ObserveSQLGeneration("unsafe")
		observability.IncrementUnsafeQuery()
		g.logger.WarnContext(ctx, "generated sql rejected by validator", "sql", candidate)
		return "", &GenerationError{Reason: "the generated SQL failed safety validation"}
	}

	normalized := g.normalizer.Normalize(candidate, request, snap.TableNames())
	observability.ObserveSQLGeneration("ok")
	g.logger.InfoContext(ctx, "sql generated", "sql", normalized)
	return normalized, nil
}

func (g *Generator) systemPrompt(snap schema.Snapshot) string {
	var b strings.Builder
	b.WriteString("You translate analyst questions about trading data into SQL.\n\n")
	b.WriteString("Available tables:\n")
	for _, table := range snap.TableNames() {
		cols, _ := snap.Columns(table)
		names := make([]string, 0, len(cols))
		for _, col := range cols {
			names = append(names, col.Name)
		}
		fmt.Fprintf(&b, "- %s.%s.%s (%s)\n", g.catalog, g.schemaName, table, strings.Join(names, ", "))
	}
	b.WriteString("\nExample query shapes:\n")
	fmt.Fprintf(&b, "- Filter: SELECT deal_num, trade_date FROM %s WHERE currency = 'EUR' LIMIT 10\n", g.qualifiedFallback())
	fmt.Fprintf(&b, "- Sort: SELECT deal_num, amount FROM %s ORDER BY trade_date DESC LIMIT 20\n", g.qualifiedFallback())
	fmt.Fprintf(&b, "- Aggregate: SELECT currency, SUM(amount) AS total FROM %s GROUP BY currency LIMIT 100\n", g.qualifiedFallback())
	fmt.Fprintf(&b, "- Join: SELECT h.deal_num, l.amount FROM %s h JOIN %s.%s.entity_trade_leg l ON h.deal_num = l.deal_num LIMIT 10\n",
		g.qualifiedFallback(), g.catalog, g.schemaName)
	b.WriteString("\nRules:\n")
	b.WriteString("- Emit exactly one SELECT or WITH statement and nothing else. No prose, no code fences.\n")
	fmt.Fprintf(&b, "- Reference every table as %s.%s.<table>.\n", g.catalog, g.schemaName)
	b.WriteString("- Always include an explicit LIMIT clause.\n")
	b.WriteString("- Never use statements that modify data.\n")
	return b.String()
}

func (g *Generator) qualifiedFallback() string {
	return g.catalog + "." + g.schemaName + "." + schema.FallbackTable
}
