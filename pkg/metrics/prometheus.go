// Package metrics provides Prometheus metrics for the learnstyle service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Survey and submission metrics
	templatesCreated     prometheus.Counter
	templatesRejected    prometheus.Counter
	submissionsCreated   prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	scoringLatency       prometheus.Histogram
	idempotentReplays    prometheus.Counter
	storageErrors        *prometheus.CounterVec
	templateCacheLookups *prometheus.CounterVec
	repositoryRecords    *prometheus.GaugeVec

	// Classification event pipeline
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueueErrors      *prometheus.CounterVec
	eventsPublished         prometheus.Counter
	publishErrors           prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "learnstyle",
		subsystem:        "survey",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.templatesCreated = m.counter("templates_created_total", "Total number of survey templates persisted")
	m.templatesRejected = m.counter("templates_rejected_total", "Total number of survey payloads rejected by validation")
	m.submissionsCreated = m.counter("submissions_created_total", "Total number of scored submissions persisted")
	m.submissionsRejected = m.counterVec("submissions_rejected_total",
		"Submissions refused before persistence, by reason", "reason")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Scoring engine latency in milliseconds")
	m.idempotentReplays = m.counter("idempotent_replays_total",
		"Submission requests answered from a previously used idempotency key")
	m.storageErrors = m.counterVec("storage_errors_total", "Storage backend failures by operation", "op")
	m.templateCacheLookups = m.counterVec("template_cache_lookups_total",
		"Template cache lookups by result (hit, miss, error)", "result")
	m.repositoryRecords = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_records",
		Help:        "Records held by the in-memory repository, by kind",
		ConstLabels: m.customLabels,
	}, []string{"kind"})

	m.queueSize = m.gauge("event_queue_size", "Current number of queued classification events")
	m.queueCapacity = m.gauge("event_queue_capacity", "Capacity of the classification event queue")
	m.queueEnqueueErrors = m.counterVec("event_queue_enqueue_errors_total",
		"Classification events dropped at enqueue, by reason", "reason")
	m.eventsPublished = m.counter("events_published_total", "Classification events handed to the publisher")
	m.publishErrors = m.counter("event_publish_errors_total", "Classification events the publisher failed to deliver")
	m.workerCount = m.gauge("worker_count", "Number of event publishing workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time spent publishing one classification event in milliseconds")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint, method and status",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Survey and submission helpers.

func RecordTemplateCreated()  { globalManager.templatesCreated.Inc() }
func RecordTemplateRejected() { globalManager.templatesRejected.Inc() }

func RecordSubmissionCreated() { globalManager.submissionsCreated.Inc() }

// RecordSubmissionRejected counts a refused submission; reason is one of
// invalid_answer, incomplete_submission, not_found, storage_error.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

func RecordScoringLatency(latencyMs float64) { globalManager.scoringLatency.Observe(latencyMs) }
func RecordIdempotentReplay()                { globalManager.idempotentReplays.Inc() }
func RecordStorageError(op string)           { globalManager.storageErrors.WithLabelValues(op).Inc() }

// UpdateRepositoryRecords sets the record gauge for kind (templates, submissions).
func UpdateRepositoryRecords(kind string, count int) {
	globalManager.repositoryRecords.WithLabelValues(kind).Set(float64(count))
}

// RecordTemplateCacheLookup counts a cache lookup with result hit, miss or error.
func RecordTemplateCacheLookup(result string) {
	globalManager.templateCacheLookups.WithLabelValues(result).Inc()
}

// Event pipeline helpers.

func UpdateQueueSize(size int)             { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)     { globalManager.queueCapacity.Set(float64(capacity)) }
func RecordQueueEnqueueError(reason string) { globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc() }
func RecordEventPublished()                { globalManager.eventsPublished.Inc() }
func RecordPublishError()                  { globalManager.publishErrors.Inc() }
func UpdateWorkerCount(count int)          { globalManager.workerCount.Set(float64(count)) }
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// HTTP helpers.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System helpers.

func UpdateSystemMemoryUsage(bytes uint64)   { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int)   { globalManager.systemGoroutineCount.Set(float64(count)) }
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry the package-level helpers record into.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
