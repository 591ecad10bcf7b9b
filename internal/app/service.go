// Package service wires the reward engine: catalog, selector, operation
// recording, the metric buffer, and the health/fairness monitors.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/spindle/internal/adapters/broadcast"
	"github.com/okian/spindle/internal/adapters/repository"
	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
	"github.com/okian/spindle/internal/domain/model"
	metricbuffer "github.com/okian/spindle/internal/monitor/buffer"
	"github.com/okian/spindle/internal/monitor/fairness"
	"github.com/okian/spindle/internal/monitor/health"
	"github.com/okian/spindle/internal/monitor/recorder"
	"github.com/okian/spindle/pkg/logger"
	"github.com/okian/spindle/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultBufferCapacity = 100
	defaultFlushInterval  = 30 * time.Second
	defaultAnnounceTier   = catalog.TierRare
)

// tierRank orders tiers for the announce threshold; higher is rarer.
var tierRank = map[catalog.Tier]int{
	catalog.TierCommon:    0,
	catalog.TierUncommon:  1,
	catalog.TierRare:      2,
	catalog.TierEpic:      3,
	catalog.TierLegendary: 4,
}

// Service is the reward engine with its monitoring pipeline. Construct with
// New, inject dependencies through options, then Start before use.
type Service struct {
	mu sync.RWMutex

	// Injected dependencies
	catalog catalog.Reader
	store   repository.Store
	emitter broadcast.Emitter
	rng     draw.RandomSource

	// Core components, built on Start
	selector *draw.Selector
	recorder *recorder.Recorder
	buffer   *metricbuffer.Buffer
	engine   *health.Engine
	auditor  *fairness.Auditor

	// Configuration
	bufferCapacity int
	flushInterval  time.Duration
	announceTier   catalog.Tier

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		bufferCapacity: defaultBufferCapacity,
		flushInterval:  defaultFlushInterval,
		announceTier:   defaultAnnounceTier,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the component graph and launches the flush loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.catalog == nil {
		return fmt.Errorf("%w: catalog reader", ErrMissingDependency)
	}
	if s.store == nil {
		return fmt.Errorf("%w: metric store", ErrMissingDependency)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.emitter == nil {
		s.emitter = broadcast.NewLogEmitter()
	}

	selectorOpts := []draw.Option{}
	if s.rng != nil {
		selectorOpts = append(selectorOpts, draw.WithRandomSource(s.rng))
	}
	s.selector = draw.NewSelector(selectorOpts...)

	s.buffer = metricbuffer.New(s.store,
		metricbuffer.WithCapacity(s.bufferCapacity),
		metricbuffer.WithFlushInterval(s.flushInterval),
	)
	s.recorder = recorder.New(s.buffer)
	s.engine = health.New(s.store)
	s.auditor = fairness.New(s.store, s.catalog)

	s.buffer.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "reward service started",
		logger.Int("buffer_capacity", s.bufferCapacity),
		logger.Duration("flush_interval", s.flushInterval),
		logger.String("announce_tier", string(s.announceTier)),
	)
	return nil
}

// Stop shuts the service down, attempting a final metric flush.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.buffer.Stop()
	s.started = false
	s.logger.Info(context.Background(), "reward service stopped")
}

// ready reports whether Start has built the component graph. Guards every
// operation that reaches into the components.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// OpenCase draws one reward for the user from the given case. Selector
// errors abort the draw before any currency moves; the caller translates
// them into a declined response and must not debit the case price.
// Recording failures never affect the outcome.
func (s *Service) OpenCase(ctx context.Context, userID, caseID string) (draw.Result, error) {
	if err := s.ready(); err != nil {
		return draw.Result{}, err
	}

	start := s.recorder.Start()

	def, err := s.catalog.GetCaseDefinition(ctx, caseID)
	if err != nil {
		s.recorder.CaseOpenFailed(ctx, start, userID, caseID, err)
		metrics.RecordDrawError("case_lookup")
		return draw.Result{}, fmt.Errorf("load case %s: %w", caseID, err)
	}

	pool, err := s.catalog.GetWeightedItemPool(ctx, caseID)
	if err != nil {
		s.recorder.CaseOpenFailed(ctx, start, userID, caseID, err)
		metrics.RecordDrawError("pool_lookup")
		return draw.Result{}, fmt.Errorf("load pool for case %s: %w", caseID, err)
	}

	res, err := s.selector.Select(def, pool)
	if err != nil {
		s.recorder.CaseOpenFailed(ctx, start, userID, caseID, err)
		metrics.RecordDrawError(drawErrorReason(err))
		return draw.Result{}, err
	}

	s.recorder.CaseOpenSucceeded(ctx, start, userID, caseID, res)
	metrics.RecordDraw(string(res.Tier), float64(res.Value))
	metrics.RecordDrawDuration(float64(time.Since(start).Microseconds()) / 1000.0)

	s.announce(ctx, userID, caseID, res)

	return res, nil
}

// announce publishes rare-or-better drops. Failures only degrade
// announcements.
func (s *Service) announce(ctx context.Context, userID, caseID string, res draw.Result) {
	if tierRank[res.Tier] < tierRank[s.announceTier] {
		return
	}
	ev := broadcast.Event{
		UserID:   userID,
		CaseID:   caseID,
		ItemID:   res.Item.ID,
		ItemName: res.Item.Name,
		Tier:     res.Tier,
		Value:    res.Value,
		At:       time.Now(),
	}
	if err := s.emitter.Publish(ctx, ev); err != nil {
		metrics.RecordBroadcastError()
		s.logger.Warn(ctx, "draw announcement failed",
			logger.String("case_id", caseID),
			logger.Error(err),
		)
	}
}

// RecordTransaction records a ledger debit or credit performed by the caller.
// A no-op before Start; recording never fails the caller's operation.
func (s *Service) RecordTransaction(ctx context.Context, start time.Time, userID string, amount int64, success bool, err error) {
	if s.ready() != nil {
		return
	}
	s.recorder.Transaction(ctx, start, userID, amount, success, err)
}

// RecordPersistence records a persistence-layer call made by the caller.
// A no-op before Start.
func (s *Service) RecordPersistence(ctx context.Context, start time.Time, target string, success bool, err error) {
	if s.ready() != nil {
		return
	}
	s.recorder.Persistence(ctx, start, target, success, err)
}

// StartTimer returns the timestamp to measure a caller-side operation from.
func (s *Service) StartTimer() time.Time {
	if s.ready() != nil {
		return time.Now()
	}
	return s.recorder.Start()
}

// PerformanceMetrics aggregates one operation over a trailing window.
func (s *Service) PerformanceMetrics(ctx context.Context, operation string, w model.Window) (*model.PerformanceAggregate, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.engine.PerformanceMetrics(ctx, operation, w)
}

// SystemHealth classifies current system health. An unstarted service is
// unhealthy by definition.
func (s *Service) SystemHealth(ctx context.Context) model.SystemHealth {
	if err := s.ready(); err != nil {
		return model.SystemHealth{
			Status:    model.StatusUnhealthy,
			Issues:    []string{err.Error()},
			CheckedAt: time.Now(),
		}
	}
	return s.engine.SystemHealth(ctx)
}

// FairnessReport audits a case's draw distribution.
func (s *Service) FairnessReport(ctx context.Context, caseID string) (*model.FairnessReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.auditor.Report(ctx, caseID)
}

// Flush forces a metric flush; used by tests and the simulator.
func (s *Service) Flush(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.buffer.Flush(ctx)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"buffer_capacity": s.bufferCapacity,
		"flush_interval":  s.flushInterval.String(),
	}
	if s.started {
		stats["buffered_records"] = s.buffer.Len()
	}
	return stats
}

// drawErrorReason maps selector errors onto a metric label.
func drawErrorReason(err error) string {
	switch {
	case errors.Is(err, catalog.ErrInvalidDistribution):
		return "invalid_distribution"
	case errors.Is(err, draw.ErrEmptyPool):
		return "empty_pool"
	default:
		return "draw_failed"
	}
}
