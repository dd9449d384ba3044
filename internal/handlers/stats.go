package handlers

import (
	"net/http"
	"strconv"

	"helpdesk-kb/internal/service"
)

// StatsHandler handles HTTP requests for knowledge-base statistics.
type StatsHandler struct {
	svc service.KnowledgeService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc service.KnowledgeService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	OK    bool           `json:"ok"`
	Stats *service.Stats `json:"stats"`
}

// ServeHTTP returns document, chunk and query counts. ?coverage=true adds indexing coverage.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	withCoverage, _ := strconv.ParseBool(r.URL.Query().Get("coverage"))

	stats, err := h.svc.Stats(ctx, withCoverage)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get stats")
		return
	}

	writeJSON(ctx, w, http.StatusOK, StatsResponse{OK: true, Stats: stats})
}
