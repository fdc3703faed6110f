package handlers

import (
	"net/http"

	"vigil-irs/core/store"
)

type LogsHandler struct {
	audits store.AuditStore
}

func NewLogsHandler(audits store.AuditStore) *LogsHandler {
	return &LogsHandler{audits: audits}
}

func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 200)
	items, err := h.audits.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "logs.internal", "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
