// Package metrics provides Prometheus metrics for the combine service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Evaluation & aggregation
	evaluationsSubmitted *prometheus.CounterVec
	aggregations         *prometheus.CounterVec
	aggregationLatency   prometheus.Histogram

	// Ranking
	rankingsServed prometheus.Counter
	rankingLatency prometheus.Histogram

	// Bulk upload
	uploadRows       *prometheus.CounterVec
	uploadRejections *prometheus.CounterVec

	// Store
	storeOpLatency *prometheus.HistogramVec
	storeTimeouts  *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Cache
	cacheLookups *prometheus.CounterVec

	// Reconcile queue & workers
	reconcileJobs      *prometheus.CounterVec
	reconcileQueueSize prometheus.Gauge
	workerActiveCount  prometheus.Gauge

	// Errors by component
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "combine",
		subsystem:        "evaluation",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // collector table
	auto := promauto.With(m.registry)

	m.evaluationsSubmitted = m.counterVec("evaluations_submitted_total",
		"Drill evaluations accepted, by drill", "drill")
	m.aggregations = m.counterVec("aggregations_total",
		"Drill summary recomputations, by outcome", "outcome")
	m.aggregationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_latency_milliseconds",
		Help:      "Latency of a full summary recomputation",
		Buckets:   m.histogramBuckets,
	})

	m.rankingsServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rankings_served_total",
		Help:      "Ranking requests answered",
	})
	m.rankingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_latency_milliseconds",
		Help:      "Latency of composite scoring and sorting for one age group",
		Buckets:   m.histogramBuckets,
	})

	m.uploadRows = m.counterVec("upload_rows_total",
		"Bulk upload rows by validation outcome", "outcome")
	m.uploadRejections = m.counterVec("upload_rejections_total",
		"Bulk uploads rejected wholesale, by reason", "reason")

	m.storeOpLatency = m.histogramVec("store_op_latency_milliseconds",
		"Document store call latency", "op")
	m.storeTimeouts = m.counterVec("store_timeouts_total",
		"Document store calls that exceeded their budget", "op")
	m.storeErrors = m.counterVec("store_errors_total",
		"Document store calls that failed for reasons other than timeout", "op")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration", "endpoint", "method", "status_code")
	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limited_total",
		Help:      "Requests rejected with 429",
	})

	m.cacheLookups = m.counterVec("profile_cache_lookups_total",
		"User profile cache lookups by result", "result")

	m.reconcileJobs = m.counterVec("reconcile_jobs_total",
		"Reconcile jobs processed by outcome", "outcome")
	m.reconcileQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_queue_size",
		Help:      "Jobs waiting in the reconcile queue",
	})
	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_workers_active",
		Help:      "Reconcile workers running",
	})

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RefreshInterval returns how often gauges should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns how often the global manager's gauges should be
// refreshed.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// RecordEvaluationSubmitted counts one accepted evaluation for drill.
func RecordEvaluationSubmitted(drill string) {
	globalManager.evaluationsSubmitted.WithLabelValues(drill).Inc()
}

// RecordAggregation records one summary recomputation outcome ("ok" or "failed").
func RecordAggregation(outcome string, latencyMs float64) {
	globalManager.aggregations.WithLabelValues(outcome).Inc()
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordRanking records one served ranking.
func RecordRanking(latencyMs float64) {
	globalManager.rankingsServed.Inc()
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordUploadRows adds valid and invalid row counts for one upload.
func RecordUploadRows(valid, invalid int) {
	globalManager.uploadRows.WithLabelValues("valid").Add(float64(valid))
	globalManager.uploadRows.WithLabelValues("invalid").Add(float64(invalid))
}

// RecordUploadRejected counts an upload refused before per-row work.
func RecordUploadRejected(reason string) {
	globalManager.uploadRejections.WithLabelValues(reason).Inc()
}

// RecordStoreOp records the latency of one document store call.
func RecordStoreOp(op string, latencyMs float64) {
	globalManager.storeOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreTimeout counts a store call that exceeded its budget.
func RecordStoreTimeout(op string) {
	globalManager.storeTimeouts.WithLabelValues(op).Inc()
}

// RecordStoreError counts a failed store call.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordCacheLookup records a profile cache "hit" or "miss".
func RecordCacheLookup(result string) {
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// RecordReconcileJob records a processed reconcile job ("ok" or "failed").
func RecordReconcileJob(outcome string) {
	globalManager.reconcileJobs.WithLabelValues(outcome).Inc()
}

// UpdateReconcileQueueSize sets the reconcile queue depth.
func UpdateReconcileQueueSize(size int) {
	globalManager.reconcileQueueSize.Set(float64(size))
}

// UpdateWorkerActiveCount sets the number of running reconcile workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry holding the service collectors.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
