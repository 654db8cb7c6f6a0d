package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
)

// Result holds a fully materialized query result. Every cell is already
// stringified: NULL becomes the literal "NULL" and temporal values are
// rendered as RFC 3339 strings.
type Result struct {
	Columns []string
	Rows    []map[string]string
}

// ExecutionError wraps a warehouse failure with the statement that caused it.
// The driver message is preserved for the caller to surface.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Executor runs read-only statements against the warehouse pool.
type Executor struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

func NewExecutor(db *sql.DB, logger *slog.Logger, timeout time.Duration) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{db: db, logger: logger, timeout: timeout}
}

// Execute runs a statement and materializes every row. Rows are closed on
// all exit paths. Fails with *ExecutionError carrying the driver message.
func (e *Executor) Execute(ctx context.Context, sqlText string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		observability.ObserveWarehouseQuery("error", time.Since(started))
		return Result{}, &ExecutionError{SQL: sqlText, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		observability.ObserveWarehouseQuery("error", time.Since(started))
		return Result{}, &ExecutionError{SQL: sqlText, Err: err}
	}

	result := Result{Columns: columns}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			observability.ObserveWarehouseQuery("error", time.Since(started))
			return Result{}, &ExecutionError{SQL: sqlText, Err: err}
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = stringifyCell(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		observability.ObserveWarehouseQuery("error", time.Since(started))
		return Result{}, &ExecutionError{SQL: sqlText, Err: err}
	}

	elapsed := time.Since(started)
	observability.ObserveWarehouseQuery("ok", elapsed)
	e.logger.InfoContext(ctx, "query executed", "rows", len(result.Rows), "elapsed_ms", elapsed.Milliseconds())
	return result, nil
}

func stringifyCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
