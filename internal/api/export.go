package api

import (
	"errors"
	"net/http"

	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/warehouse"
)

type exportResponse struct {
	Key      string `json:"key"`
	Size     int64  `json:"size_bytes"`
	RowCount int    `json:"row_count"`
	SQL      string `json:"sql"`
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleExporter); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED",
			"result export is not configured", false, nil)
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

	info, err := deps.Exporter.Export(r.Context(), result)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Key:      info.Key,
		Size:     info.Size,
		RowCount: info.RowCount,
		SQL:      sqlText,
	})
}
