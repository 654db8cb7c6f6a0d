package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/nlsql"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/warehouse"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	SQL      string              `json:"sql"`
	Columns  []string            `json:"columns"`
	Rows     []map[string]string `json:"rows"`
	RowCount int                 `json:"row_count"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	sqlText, ok := decodeQuerySQL(deps, w, r)
	if !ok {
		return
	}
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WAREHOUSE_NOT_CONFIGURED",
			"no warehouse connection is configured", false, nil)
		return
	}

	result, err := deps.Executor.Execute(r.Context(), sqlText)
	if err != nil {
		message := err.Error()
		var execErr *warehouse.ExecutionError
		if errors.As(err, &execErr) {
			message = execErr.Err.Error()
		}
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", message, false,
			map[string]any{"sql": sqlText})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		SQL:      sqlText,
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: len(result.Rows),
	})
}

// decodeQuerySQL reads and validates the statement of a query or export
// request: the body must carry non-empty SQL that passes the safety
// validator, and the statement is normalized before execution.
func decodeQuerySQL(deps Dependencies, w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return "", false
	}
	sqlText := strings.TrimSpace(req.SQL)
	if sqlText == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "sql is required", false, nil)
		return "", false
	}
	if !nlsql.IsSafe(sqlText) {
		observability.IncrementUnsafeQuery()
		writeError(r.Context(), w, http.StatusBadRequest, "UNSAFE_QUERY",
			"only read-only SELECT statements are allowed", false, nil)
		return "", false
	}
	if deps.Catalog != "" && deps.SchemaName != "" {
		var tables []string
		if deps.Schema != nil {
			tables = deps.Schema.Snapshot(r.Context()).TableNames()
		}
		sqlText = nlsql.NewNormalizer(deps.Catalog, deps.SchemaName).Normalize(sqlText, sqlText, tables)
	}
	return sqlText, true
}
