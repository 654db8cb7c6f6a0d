package api

import (
	"net/http"
	"time"

	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/schema"
)

type schemaResponse struct {
	Source   string                     `json:"source"`
	LoadedAt string                     `json:"loaded_at"`
	Tables   map[string][]schema.Column `json:"tables"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED",
			"no schema cache is configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshotPayload(deps.Schema.Snapshot(r.Context())))
}

func handleSchemaRefresh(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED",
			"no schema cache is configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshotPayload(deps.Schema.Refresh(r.Context())))
}

func snapshotPayload(snap schema.Snapshot) schemaResponse {
	return schemaResponse{
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt.UTC().Format(time.RFC3339),
		Tables:   snap.Tables,
	}
}
