// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
	"github.com/okian/spindle/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// OpenCase draws one reward for the user.
	OpenCase(ctx context.Context, userID, caseID string) (draw.Result, error)

	// Monitoring reads consumed by external dashboards.
	SystemHealth(ctx context.Context) model.SystemHealth
	PerformanceMetrics(ctx context.Context, operation string, w model.Window) (*model.PerformanceAggregate, error)
	FairnessReport(ctx context.Context, caseID string) (*model.FairnessReport, error)
	Stats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	metricsHandler     *MetricsHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	openHandler        *OpenHandler
	performanceHandler *PerformanceHandler
	fairnessHandler    *FairnessHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		metricsHandler:     NewMetricsHandler(),
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		openHandler:        NewOpenHandler(deps),
		performanceHandler: NewPerformanceHandler(deps),
		fairnessHandler:    NewFairnessHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/open", MetricsMiddleware(s.openHandler.HandleOpen, "open"))
	mux.HandleFunc("/performance", MetricsMiddleware(s.performanceHandler.HandlePerformance, "performance"))
	mux.HandleFunc("/fairness/", MetricsMiddleware(s.fairnessHandler.HandleFairness, "fairness"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound lets the API translate unknown-case errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrCaseNotFound)
}
