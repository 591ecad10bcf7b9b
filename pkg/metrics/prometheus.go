// Package metrics provides Prometheus metrics for the spindle reward engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Draw metrics
	drawsTotal   *prometheus.CounterVec
	drawValue    prometheus.Histogram
	drawErrors   *prometheus.CounterVec
	drawDuration prometheus.Histogram

	// Operation recording metrics
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Buffer & flush metrics
	bufferSize        prometheus.Gauge
	bufferCapacity    prometheus.Gauge
	bufferUtilization prometheus.Gauge
	flushesTotal      prometheus.Counter
	flushFailures     prometheus.Counter
	recordsFlushed    prometheus.Counter
	recordsRequeued   prometheus.Counter
	flushDuration     prometheus.Histogram

	// Store & broadcast metrics
	storeErrors     *prometheus.CounterVec
	broadcastErrors prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "spindle",
		subsystem:        "rewards",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.drawsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "draws_total",
		Help:      "Total number of completed reward draws, partitioned by rarity tier",
	}, []string{"tier"})

	m.drawValue = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "draw_value",
		Help:      "Histogram of effective reward values awarded per draw",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
	})

	m.drawErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "draw_errors_total",
		Help:      "Total number of failed reward draws, partitioned by reason",
	}, []string{"reason"})

	m.drawDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "draw_duration_milliseconds",
		Help:      "Histogram of end-to-end draw duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.operationsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "operations_total",
		Help:      "Total number of recorded operations, partitioned by name and outcome",
	}, []string{"operation", "outcome"})

	m.operationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "operation_duration_milliseconds",
		Help:      "Histogram of recorded operation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.bufferSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "buffer_records",
		Help:      "Current number of records held in the metric buffer",
	})

	m.bufferCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "buffer_capacity",
		Help:      "Configured flush threshold of the metric buffer",
	})

	m.bufferUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "buffer_utilization",
		Help:      "Buffer fill ratio relative to the flush threshold (0.0 to 1.0)",
	})

	m.flushesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flushes_total",
		Help:      "Total number of successful metric buffer flushes",
	})

	m.flushFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_failures_total",
		Help:      "Total number of failed metric buffer flushes",
	})

	m.recordsFlushed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_flushed_total",
		Help:      "Total number of operation records persisted to the metric store",
	})

	m.recordsRequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_requeued_total",
		Help:      "Total number of operation records requeued after a failed flush",
	})

	m.flushDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_duration_milliseconds",
		Help:      "Histogram of metric flush duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of metric store errors, partitioned by operation",
	}, []string{"operation"})

	m.broadcastErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_errors_total",
		Help:      "Total number of failed draw event broadcasts",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, partitioned by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// GetRegistry returns the registry backing the global manager, for serving
// the /healthz metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers on the global manager.

// RecordDraw records a completed draw for a rarity tier with its awarded value.
func RecordDraw(tier string, value float64) {
	globalManager.drawsTotal.WithLabelValues(tier).Inc()
	globalManager.drawValue.Observe(value)
}

// RecordDrawError records a failed draw with its reason.
func RecordDrawError(reason string) {
	globalManager.drawErrors.WithLabelValues(reason).Inc()
}

// RecordDrawDuration records the end-to-end duration of a draw in milliseconds.
func RecordDrawDuration(ms float64) {
	globalManager.drawDuration.Observe(ms)
}

// RecordOperation records a recorded operation and its duration.
func RecordOperation(operation string, success bool, durationMS float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	globalManager.operationsTotal.WithLabelValues(operation, outcome).Inc()
	globalManager.operationDuration.WithLabelValues(operation).Observe(durationMS)
}

// UpdateBufferSize updates the buffer fill gauges.
func UpdateBufferSize(size, capacity int) {
	globalManager.bufferSize.Set(float64(size))
	globalManager.bufferCapacity.Set(float64(capacity))
	if capacity > 0 {
		globalManager.bufferUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordFlush records a successful flush of n records.
func RecordFlush(n int, durationMS float64) {
	globalManager.flushesTotal.Inc()
	globalManager.recordsFlushed.Add(float64(n))
	globalManager.flushDuration.Observe(durationMS)
}

// RecordFlushFailure records a failed flush that requeued n records.
func RecordFlushFailure(n int) {
	globalManager.flushFailures.Inc()
	globalManager.recordsRequeued.Add(float64(n))
}

// RecordStoreError records a metric store error for an operation kind.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordBroadcastError records a failed draw event broadcast.
func RecordBroadcastError() {
	globalManager.broadcastErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
