package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

type ReportsHandler struct {
	store  store.ReportsStore
	logger *utils.Logger
}

func NewReportsHandler(rs store.ReportsStore, logger *utils.Logger) *ReportsHandler {
	return &ReportsHandler{store: rs, logger: logger}
}

func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.ReportFilter{
		Search:     strings.TrimSpace(r.URL.Query().Get("q")),
		Status:     strings.TrimSpace(r.URL.Query().Get("status")),
		CategoryID: int64(parseIntDefault(r.URL.Query().Get("category_id"), 0)),
		PlaceID:    int64(parseIntDefault(r.URL.Query().Get("place_id"), 0)),
		Limit:      parseIntDefault(r.URL.Query().Get("limit"), 100),
		Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
	}
	items, err := h.store.ListReports(r.Context(), filter)
	if err != nil {
		h.logger.Errorf("reports list: %v", err)
		writeError(w, http.StatusInternalServerError, "reports.internal", "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "reports.bad_id", "invalid report id")
		return
	}
	report, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		h.logger.Errorf("reports get %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "reports.internal", "server error")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "reports.not_found", "report not found")
		return
	}
	h.writeReport(w, r, report)
}

func (h *ReportsHandler) GetByCaseNo(w http.ResponseWriter, r *http.Request) {
	caseNo := strings.TrimSpace(chi.URLParam(r, "caseNo"))
	if caseNo == "" {
		writeError(w, http.StatusBadRequest, "reports.bad_case_no", "invalid case number")
		return
	}
	report, err := h.store.GetReportByCaseNo(r.Context(), caseNo)
	if err != nil {
		h.logger.Errorf("reports get case %s: %v", caseNo, err)
		writeError(w, http.StatusInternalServerError, "reports.internal", "server error")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "reports.not_found", "report not found")
		return
	}
	h.writeReport(w, r, report)
}

func (h *ReportsHandler) writeReport(w http.ResponseWriter, r *http.Request, report *store.Report) {
	payload := map[string]any{"item": report}
	if place, err := h.store.GetPlace(r.Context(), report.PlaceID); err == nil && place != nil {
		payload["place"] = place
	}
	if cat, err := h.store.GetCategory(r.Context(), report.CategoryID); err == nil && cat != nil {
		payload["category"] = cat
	}
	writeJSON(w, http.StatusOK, payload)
}
