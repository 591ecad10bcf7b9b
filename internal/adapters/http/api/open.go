// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
)

// OpenDependencies defines the interface for case opening.
type OpenDependencies interface {
	OpenCase(ctx context.Context, userID, caseID string) (draw.Result, error)
}

// OpenHandler handles case opening requests.
type OpenHandler struct {
	deps OpenDependencies
}

// NewOpenHandler creates a new open handler.
func NewOpenHandler(deps OpenDependencies) *OpenHandler {
	return &OpenHandler{deps: deps}
}

// openRequest mirrors the POST /open body.
type openRequest struct {
	UserID string `json:"user_id"`
	CaseID string `json:"case_id"`
}

func (o openRequest) validate() error {
	switch {
	case strings.TrimSpace(o.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(o.CaseID) == "":
		return errors.New("missing case_id")
	}
	return nil
}

// openResponse is the awarded reward.
type openResponse struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Tier     string `json:"tier"`
	Value    int64  `json:"value"`
}

// HandleOpen handles POST /open requests. Selector errors come back as a
// declined operation, never a partial award.
func (h *OpenHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.OpenCase(r.Context(), req.UserID, req.CaseID)
	switch {
	case err == nil:
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	case errors.Is(err, catalog.ErrInvalidDistribution), errors.Is(err, draw.ErrEmptyPool):
		writeError(w, http.StatusUnprocessableEntity, "draw_declined", err)
		return
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusOK, openResponse{
		ItemID:   res.Item.ID,
		ItemName: res.Item.Name,
		Tier:     string(res.Tier),
		Value:    res.Value,
	})
}
