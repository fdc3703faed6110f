package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"vigil-irs/config"
	"vigil-irs/core/auth"
	"vigil-irs/core/imports"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

type ImportsHandler struct {
	cfg       *config.AppConfig
	analyzer  *imports.Analyzer
	committer *imports.Committer
	audits    store.AuditStore
	logger    *utils.Logger
}

func NewImportsHandler(cfg *config.AppConfig, analyzer *imports.Analyzer, committer *imports.Committer, audits store.AuditStore, logger *utils.Logger) *ImportsHandler {
	return &ImportsHandler{cfg: cfg, analyzer: analyzer, committer: committer, audits: audits, logger: logger}
}

// Analyze ingests a CSV upload and returns the full analysis report without
// committing any report rows.
func (h *ImportsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	maxBytes := h.cfg.Imports.UploadMaxBytes
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "imports.bad_upload", "could not read upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "imports.bad_upload", "missing file field")
		return
	}
	defer file.Close()

	report, err := h.analyzer.Analyze(r.Context(), header.Filename, file)
	if err != nil {
		var missing *imports.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			_ = h.audits.Log(r.Context(), sess.Username, "imports.analyze", "rejected: "+missing.Error())
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"code":            "imports.missing_columns",
				"error":           missing.Error(),
				"missing_columns": missing.Columns,
			})
		case errors.Is(err, imports.ErrEmptyUpload):
			writeError(w, http.StatusUnprocessableEntity, "imports.empty", "upload has no header row")
		default:
			h.logger.Errorf("imports analyze file=%s: %v", header.Filename, err)
			writeError(w, http.StatusUnprocessableEntity, "imports.unparseable", err.Error())
		}
		return
	}
	_ = h.audits.Log(r.Context(), sess.Username, "imports.analyze",
		fmt.Sprintf("upload=%s file=%s rows=%d new=%d update=%d", report.UploadID, header.Filename, report.TotalRows, report.Counts.New, report.Counts.Update))
	writeJSON(w, http.StatusOK, report)
}

// Confirm applies the caller-echoed row lists from a prior analysis report
// as one atomic transaction.
func (h *ImportsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	var req imports.ConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "imports.bad_payload", "invalid json payload")
		return
	}
	result, err := h.committer.Confirm(r.Context(), req)
	if err != nil {
		_ = h.audits.Log(r.Context(), sess.Username, "imports.confirm", "aborted: "+err.Error())
		status := http.StatusUnprocessableEntity
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{
			"code":    "imports.aborted",
			"error":   err.Error(),
			"created": 0,
			"updated": 0,
		})
		return
	}
	_ = h.audits.Log(r.Context(), sess.Username, "imports.confirm",
		fmt.Sprintf("action=%s created=%d updated=%d", req.Action, result.Created, result.Updated))
	writeJSON(w, http.StatusOK, result)
}
