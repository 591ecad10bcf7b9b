// Package health computes rolling performance aggregates and the coarse
// system health classification from persisted operation records.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/spindle/internal/adapters/repository"
	"github.com/okian/spindle/internal/domain/model"
	"github.com/okian/spindle/pkg/logger"
)

// Fixed classification thresholds. Dashboards and tests depend on these
// exact values.
const (
	degradedLatencyMS  = 1000.0
	unhealthyLatencyMS = 5000.0
	degradedErrorPct   = 5.0
	unhealthyErrorPct  = 20.0

	healthWindow = time.Hour
)

// Querier reads back persisted records.
type Querier interface {
	QueryRecords(ctx context.Context, f repository.Filter) ([]model.OperationRecord, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Engine derives performance aggregates and system health on demand.
// Results are recomputed per call and never cached.
type Engine struct {
	store  Querier
	now    Clock
	logger logger.Logger
}

// New creates an engine reading from store.
func New(store Querier, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: logger.Get().Named("health"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// PerformanceMetrics aggregates one operation over a trailing window.
// Returns nil when no qualifying records exist.
func (e *Engine) PerformanceMetrics(ctx context.Context, operation string, w model.Window) (*model.PerformanceAggregate, error) {
	d, ok := w.Duration()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWindow, w)
	}

	recs, err := e.store.QueryRecords(ctx, repository.Filter{
		Operation: operation,
		Since:     e.now().Add(-d),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", operation, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	agg := &model.PerformanceAggregate{
		Operation:     operation,
		Window:        w,
		MinDurationMS: recs[0].DurationMS,
		MaxDurationMS: recs[0].DurationMS,
		TotalCount:    len(recs),
	}
	var sum float64
	for _, rec := range recs {
		sum += rec.DurationMS
		if rec.DurationMS < agg.MinDurationMS {
			agg.MinDurationMS = rec.DurationMS
		}
		if rec.DurationMS > agg.MaxDurationMS {
			agg.MaxDurationMS = rec.DurationMS
		}
		if !rec.Success {
			agg.ErrorCount++
		}
	}
	agg.AvgDurationMS = sum / float64(len(recs))
	agg.SuccessRate = float64(len(recs)-agg.ErrorCount) / float64(len(recs)) * 100

	return agg, nil
}

// SystemHealth classifies the service from the last hour of records. An
// empty window reads as healthy with zero metrics; a store read failure
// reads as unhealthy with its own issue, distinct from healthy-but-empty.
func (e *Engine) SystemHealth(ctx context.Context) model.SystemHealth {
	now := e.now()
	h := model.SystemHealth{
		Status:    model.StatusHealthy,
		CheckedAt: now,
	}

	recs, err := e.store.QueryRecords(ctx, repository.Filter{Since: now.Add(-healthWindow)})
	if err != nil {
		e.logger.Error(ctx, "health query failed", logger.Error(err))
		h.Status = model.StatusUnhealthy
		h.Issues = append(h.Issues, fmt.Sprintf("metric store query failed: %v", err))
		return h
	}
	if len(recs) == 0 {
		return h
	}

	var (
		sum    float64
		errors int
	)
	for _, rec := range recs {
		sum += rec.DurationMS
		if !rec.Success {
			errors++
		}
	}
	h.TotalOperations = len(recs)
	h.AvgDurationMS = sum / float64(len(recs))
	h.ErrorRate = float64(errors) / float64(len(recs)) * 100

	switch {
	case h.AvgDurationMS > unhealthyLatencyMS:
		h.Status = worse(h.Status, model.StatusUnhealthy)
		h.Issues = append(h.Issues, fmt.Sprintf("average response time %.2fms exceeds %.0fms", h.AvgDurationMS, unhealthyLatencyMS))
	case h.AvgDurationMS > degradedLatencyMS:
		h.Status = worse(h.Status, model.StatusDegraded)
		h.Issues = append(h.Issues, fmt.Sprintf("average response time %.2fms exceeds %.0fms", h.AvgDurationMS, degradedLatencyMS))
	}

	switch {
	case h.ErrorRate > unhealthyErrorPct:
		h.Status = worse(h.Status, model.StatusUnhealthy)
		h.Issues = append(h.Issues, fmt.Sprintf("error rate %.2f%% exceeds %.0f%%", h.ErrorRate, unhealthyErrorPct))
	case h.ErrorRate > degradedErrorPct:
		h.Status = worse(h.Status, model.StatusDegraded)
		h.Issues = append(h.Issues, fmt.Sprintf("error rate %.2f%% exceeds %.0f%%", h.ErrorRate, degradedErrorPct))
	}

	return h
}

// worse returns the more severe of two statuses; unhealthy dominates.
func worse(a, b model.HealthStatus) model.HealthStatus {
	if a == model.StatusUnhealthy || b == model.StatusUnhealthy {
		return model.StatusUnhealthy
	}
	if a == model.StatusDegraded || b == model.StatusDegraded {
		return model.StatusDegraded
	}
	return model.StatusHealthy
}
