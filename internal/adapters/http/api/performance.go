// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/spindle/internal/domain/model"
)

// PerformanceDependencies defines the interface for performance reads.
type PerformanceDependencies interface {
	PerformanceMetrics(ctx context.Context, operation string, w model.Window) (*model.PerformanceAggregate, error)
}

// PerformanceHandler handles performance aggregate requests.
type PerformanceHandler struct {
	deps PerformanceDependencies
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(deps PerformanceDependencies) *PerformanceHandler {
	return &PerformanceHandler{deps: deps}
}

// HandlePerformance handles GET /performance?operation=X&window=1h requests.
// Windows: 1h, 24h, 7d (default 1h). No qualifying records yields 404.
func (h *PerformanceHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	operation := r.URL.Query().Get("operation")
	if operation == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing operation"))
		return
	}
	window := model.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = model.WindowHour
	}
	if _, ok := window.Duration(); !ok {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("unknown window; use 1h, 24h or 7d"))
		return
	}

	agg, err := h.deps.PerformanceMetrics(r.Context(), operation, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if agg == nil {
		writeError(w, http.StatusNotFound, "no_data", errors.New("no records for operation in window"))
		return
	}
	writeJSON(w, http.StatusOK, agg)
}
