package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/querydesk/querydesk/internal/conversation"
	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/nlsql"
	"github.com/querydesk/querydesk/internal/schema"
	"github.com/querydesk/querydesk/internal/warehouse"
)

type fakeChat struct {
	response string
	lastReq  llm.Request
}

func (f *fakeChat) Complete(_ context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	return f.response, nil
}

type fakeGenerator struct {
	sql         string
	err         error
	lastRequest string
	lastPrefix  string
}

func (f *fakeGenerator) Generate(_ context.Context, request, contextPrefix string) (string, error) {
	f.lastRequest = request
	f.lastPrefix = contextPrefix
	if f.err != nil {
		return "", f.err
	}
	return f.sql, nil
}

type fakeExecutor struct {
	result  warehouse.Result
	err     error
	lastSQL string
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) (warehouse.Result, error) {
	f.lastSQL = sql
	if f.err != nil {
		return warehouse.Result{}, f.err
	}
	return f.result, nil
}

type fixedSnapshot struct {
	snap schema.Snapshot
}

func (f fixedSnapshot) Snapshot(context.Context) schema.Snapshot {
	return f.snap
}

func testSnapshot() schema.Snapshot {
	return schema.Snapshot{
		LoadedAt: time.Now().UTC(),
		Source:   "test",
		Tables: map[string][]schema.Column{
			"entity_trade_header": {
				{Name: "deal_num", DataType: "BIGINT"},
				{Name: "trade_date", DataType: "DATE"},
				{Name: "trader", DataType: "VARCHAR"},
				{Name: "amount", DataType: "DOUBLE"},
			},
		},
	}
}

func tradeResult() warehouse.Result {
	return warehouse.Result{
		Columns: []string{"deal_num", "trade_date", "amount"},
		Rows: []map[string]string{
			{"deal_num": "1001", "trade_date": "2026-08-28", "amount": "500"},
			{"deal_num": "1002", "trade_date": "2026-08-29", "amount": "750"},
		},
	}
}

func TestHandleExplainUsesChatCompletion(t *testing.T) {
	chat := &fakeChat{response: "A swap is an agreement to exchange cash flows."}
	a := New(Options{Chat: chat})

	resp := a.Handle(context.Background(), "what is a swap?", "c1")
	if resp.Intent != IntentExplain {
		t.Fatalf("Intent = %q", resp.Intent)
	}
	if resp.Text != "A swap is an agreement to exchange cash flows." {
		t.Fatalf("Text = %q", resp.Text)
	}
	if chat.lastReq.Temperature != 0.7 {
		t.Fatalf("temperature = %v, want 0.7", chat.lastReq.Temperature)
	}
}

func TestHandleDataQueryExecutesGeneratedSQL(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT * FROM trade_catalog.trade_schema.entity_trade_header LIMIT 10"}
	exec := &fakeExecutor{result: tradeResult()}
	a := New(Options{Generator: gen, Executor: exec, Schema: fixedSnapshot{snap: testSnapshot()}})

	resp := a.Handle(context.Background(), "show me recent trades", "c1")
	if resp.Intent != IntentDataQuery {
		t.Fatalf("Intent = %q", resp.Intent)
	}
	if exec.lastSQL != gen.sql {
		t.Fatalf("executed %q, want the generated statement", exec.lastSQL)
	}
	if resp.SQL != gen.sql || len(resp.Rows) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if !strings.Contains(resp.Text, "1001") {
		t.Fatalf("Text = %q, want formatted rows", resp.Text)
	}
}

func TestHandleCarriesConversationContextIntoGeneration(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT 1 AS x FROM t LIMIT 1"}
	exec := &fakeExecutor{result: tradeResult()}
	store := conversation.NewStore(50, 6)
	a := New(Options{Generator: gen, Executor: exec, Conversations: store})

	a.Handle(context.Background(), "show me EUR trades", "c1")
	a.Handle(context.Background(), "show the largest ones", "c1")
	if !strings.Contains(gen.lastPrefix, "show me EUR trades") {
		t.Fatalf("prefix = %q, want earlier turns", gen.lastPrefix)
	}
	if strings.Contains(gen.lastPrefix, "show the largest ones") {
		t.Fatal("prefix must not contain the current message")
	}
}

func TestHandleBoundsStoredHistoryPreview(t *testing.T) {
	rows := make([]map[string]string, 40)
	for i := range rows {
		rows[i] = map[string]string{"deal_num": "1001", "trade_date": "2026-08-28", "amount": "500"}
	}
	gen := &fakeGenerator{sql: "SELECT 1 AS x FROM t LIMIT 1"}
	exec := &fakeExecutor{result: warehouse.Result{Columns: []string{"deal_num", "trade_date", "amount"}, Rows: rows}}
	store := conversation.NewStore(50, 6)
	a := New(Options{Generator: gen, Executor: exec, Conversations: store})

	resp := a.Handle(context.Background(), "show me trades", "c1")
	if len(resp.Text) <= historyPreviewLimit {
		t.Fatalf("reply length = %d, test needs a reply beyond the preview limit", len(resp.Text))
	}
	entries := store.Entries("c1")
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	stored := entries[1].Content
	if len(stored) != historyPreviewLimit+3 || !strings.HasSuffix(stored, "...") {
		t.Fatalf("stored length = %d, want bounded preview", len(stored))
	}
}

func TestHandleDataQueryGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: &nlsql.GenerationError{Reason: "the language model is unavailable"}}
	a := New(Options{Generator: gen, Executor: &fakeExecutor{}})

	resp := a.Handle(context.Background(), "show me recent trades", "c1")
	if !strings.Contains(resp.Text, "the language model is unavailable") {
		t.Fatalf("Text = %q, want the failure reason", resp.Text)
	}
	if resp.SQL != "" {
		t.Fatal("no SQL should be reported for a failed generation")
	}
}

func TestHandleCustomSQLRejectsUnsafeStatement(t *testing.T) {
	exec := &fakeExecutor{result: tradeResult()}
	a := New(Options{Executor: exec})

	resp := a.Handle(context.Background(), "select * from t where 1=1; drop table t", "c1")
	if resp.Intent != IntentCustomSQL {
		t.Fatalf("Intent = %q", resp.Intent)
	}
	if !strings.Contains(resp.Text, "read-only") {
		t.Fatalf("Text = %q, want a refusal", resp.Text)
	}
	if exec.lastSQL != "" {
		t.Fatal("unsafe statement must not reach the executor")
	}
}

func TestHandleCustomSQLNormalizesAndExecutes(t *testing.T) {
	exec := &fakeExecutor{result: tradeResult()}
	a := New(Options{Executor: exec, Schema: fixedSnapshot{snap: testSnapshot()}})

	resp := a.Handle(context.Background(), "SELECT deal_num FROM entity_trade_header WHERE amount > 100", "c1")
	if resp.Intent != IntentCustomSQL {
		t.Fatalf("Intent = %q", resp.Intent)
	}
	if !strings.Contains(exec.lastSQL, "trade_catalog.trade_schema.entity_trade_header") {
		t.Fatalf("executed %q, want canonical qualification", exec.lastSQL)
	}
	if !strings.Contains(strings.ToUpper(exec.lastSQL), "LIMIT") {
		t.Fatalf("executed %q, want an appended row cap", exec.lastSQL)
	}
}

func TestHandleExecutionFailureOffersClarification(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT dealnum FROM trade_catalog.trade_schema.entity_trade_header LIMIT 5"}
	exec := &fakeExecutor{err: &warehouse.ExecutionError{
		SQL: "SELECT dealnum ...",
		Err: errors.New(`column "dealnum" does not exist`),
	}}
	store := conversation.NewStore(50, 6)
	a := New(Options{Generator: gen, Executor: exec, Schema: fixedSnapshot{snap: testSnapshot()}, Conversations: store})

	resp := a.Handle(context.Background(), "show me trades by dealnum", "c1")
	if !strings.Contains(resp.Text, `column "dealnum" does not exist`) {
		t.Fatalf("Text = %q, want the driver message", resp.Text)
	}
	if !strings.Contains(resp.Text, gen.sql) {
		t.Fatal("failure text should echo the generated SQL")
	}
	if !strings.Contains(resp.Text, "deal_num") {
		t.Fatalf("Text = %q, want a column suggestion", resp.Text)
	}
	pending, ok := store.PendingClarification("c1")
	if !ok || pending.OriginalRequest != "show me trades by dealnum" {
		t.Fatalf("pending = %+v, ok = %v", pending, ok)
	}
}

func TestHandleConsumesPendingClarification(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT 1 AS x FROM t LIMIT 1"}
	exec := &fakeExecutor{result: tradeResult()}
	store := conversation.NewStore(50, 6)
	store.SetPendingClarification("c1", conversation.PendingClarification{
		OriginalRequest: "show me trades by dealnum",
		Suggestions:     []string{"deal_num"},
	})
	a := New(Options{Generator: gen, Executor: exec, Conversations: store})

	a.Handle(context.Background(), "show deal_num please", "c1")
	if !strings.Contains(gen.lastRequest, "show me trades by dealnum") {
		t.Fatalf("request = %q, want the original question", gen.lastRequest)
	}
	if !strings.Contains(gen.lastRequest, "deal_num") {
		t.Fatalf("request = %q, want the clarification", gen.lastRequest)
	}
	if _, ok := store.PendingClarification("c1"); ok {
		t.Fatal("pending clarification should be consumed")
	}
}

func TestHandleSimulatedDataWithoutWarehouse(t *testing.T) {
	gen := &fakeGenerator{sql: "SELECT * FROM t LIMIT 5"}
	a := New(Options{Generator: gen})

	resp := a.Handle(context.Background(), "show me recent trades", "c1")
	if !resp.Simulated {
		t.Fatal("response should be marked simulated")
	}
	if len(resp.Rows) == 0 || !strings.Contains(resp.Text, "simulated") {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleEndToEndGeneratesExecutableQuery(t *testing.T) {
	modelOutput := "```sql\nSELECT deal_num, trade_date\nFROM entity_trade_header\nORDER BY trade_date DESC\n```"
	gen, err := nlsql.NewGenerator(nlsql.GeneratorOptions{
		Client:     &fakeChat{response: modelOutput},
		Schema:     fixedSnapshot{snap: testSnapshot()},
		Catalog:    "trade_catalog",
		SchemaName: "trade_schema",
	})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	exec := &fakeExecutor{result: tradeResult()}
	a := New(Options{Generator: gen, Executor: exec, Schema: fixedSnapshot{snap: testSnapshot()}})

	resp := a.Handle(context.Background(), "show me 3 recent trades", "c1")
	if !strings.Contains(resp.SQL, "trade_catalog.trade_schema.entity_trade_header") {
		t.Fatalf("SQL = %q, want canonical qualification", resp.SQL)
	}
	if !strings.Contains(resp.SQL, "LIMIT 3") {
		t.Fatalf("SQL = %q, want LIMIT 3", resp.SQL)
	}
	if !nlsql.IsSafe(resp.SQL) {
		t.Fatalf("SQL = %q, must pass safety validation", resp.SQL)
	}
}
