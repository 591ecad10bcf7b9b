// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/spindle/internal/domain/model"
)

// FairnessDependencies defines the interface for fairness reads.
type FairnessDependencies interface {
	FairnessReport(ctx context.Context, caseID string) (*model.FairnessReport, error)
}

// FairnessHandler handles fairness report requests.
type FairnessHandler struct {
	deps FairnessDependencies
}

// NewFairnessHandler creates a new fairness handler.
func NewFairnessHandler(deps FairnessDependencies) *FairnessHandler {
	return &FairnessHandler{deps: deps}
}

// HandleFairness handles GET /fairness/{case_id} requests. An unknown case
// or a case without sampled draws yields 404.
func (h *FairnessHandler) HandleFairness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	caseID := strings.TrimPrefix(r.URL.Path, "/fairness/")
	if caseID == "" || strings.Contains(caseID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing case id"))
		return
	}

	report, err := h.deps.FairnessReport(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "no_data", errors.New("no sampled draws for case"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
