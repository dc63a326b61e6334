// Package metrics provides Prometheus metrics for the TimeForge service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Event store
	eventMutations     *prometheus.CounterVec
	eventsStored       prometheus.Gauge
	idempotentReplays  prometheus.Counter
	storePersistErrors prometheus.Counter

	// Streaks
	streakComputations   prometheus.Counter
	streakComputeLatency prometheus.Histogram
	streakLength         prometheus.Histogram

	// Suggestions
	suggestions       *prometheus.CounterVec
	suggestionLatency prometheus.Histogram

	// Notifications
	remindersSent    prometheus.Counter
	websocketClients prometheus.Gauge

	// Identity
	authAttempts *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Change queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "timeforge",
		subsystem:        "scheduler",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.eventMutations = m.counterVec("event_mutations_total",
		"Event store mutations by operation", "operation")
	m.eventsStored = m.gauge("events_stored",
		"Number of events currently held by the store")
	m.idempotentReplays = m.counter("idempotent_replays_total",
		"Create requests answered from the idempotency cache")
	m.storePersistErrors = m.counter("store_persist_errors_total",
		"Failures writing the event collection to durable storage")

	m.streakComputations = m.counter("streak_computations_total",
		"Number of streak summaries computed")
	m.streakComputeLatency = m.histogram("streak_compute_latency_milliseconds",
		"Streak summary computation latency in milliseconds", m.histogramBuckets)
	m.streakLength = m.histogram("streak_length_days",
		"Distribution of computed current streak lengths",
		[]float64{0, 1, 2, 3, 5, 7, 14, 30, 60, 100, 365})

	m.suggestions = m.counterVec("suggestions_total",
		"AI slot suggestion requests by result", "result")
	m.suggestionLatency = m.histogram("suggestion_latency_milliseconds",
		"AI slot suggestion latency in milliseconds",
		[]float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000})

	m.remindersSent = m.counter("reminders_sent_total",
		"Upcoming event reminders pushed to clients")
	m.websocketClients = m.gauge("websocket_clients",
		"Currently connected notification clients")

	m.authAttempts = m.counterVec("auth_attempts_total",
		"Signup and login attempts by operation and result", "operation", "result")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("change_queue_size", "Current size of the change queue")
	m.queueCapacity = m.gauge("change_queue_capacity", "Capacity of the change queue")
	m.queueEnqueued = m.counter("change_queue_enqueued_total", "Changes enqueued")
	m.queueDequeued = m.counter("change_queue_dequeued_total", "Changes dequeued")
	m.queueEnqueueErrors = m.counter("change_queue_enqueue_errors_total",
		"Changes dropped because the queue was full or closed")

	m.workerCount = m.gauge("worker_count", "Number of change workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time spent handling one change", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Change handling failures")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

// RecordEventMutation counts one store mutation (create, update, delete, toggle).
func RecordEventMutation(operation string) {
	globalManager.eventMutations.WithLabelValues(operation).Inc()
}

// UpdateEventsStored sets the number of stored events.
func UpdateEventsStored(count int) {
	globalManager.eventsStored.Set(float64(count))
}

// RecordIdempotentReplay counts a create answered as duplicate.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordStorePersistError counts a failed durable write.
func RecordStorePersistError() {
	globalManager.storePersistErrors.Inc()
}

// RecordStreakComputation records one summary computation and its result.
func RecordStreakComputation(latencyMs float64, currentStreak int) {
	globalManager.streakComputations.Inc()
	globalManager.streakComputeLatency.Observe(latencyMs)
	globalManager.streakLength.Observe(float64(currentStreak))
}

// RecordSuggestion records a suggestion outcome ("success" or "failure").
func RecordSuggestion(result string, latencyMs float64) {
	globalManager.suggestions.WithLabelValues(result).Inc()
	globalManager.suggestionLatency.Observe(latencyMs)
}

// RecordReminderSent counts one pushed reminder.
func RecordReminderSent() {
	globalManager.remindersSent.Inc()
}

// UpdateWebsocketClients sets the connected client count.
func UpdateWebsocketClients(count int) {
	globalManager.websocketClients.Set(float64(count))
}

// RecordAuthAttempt counts a signup or login attempt.
func RecordAuthAttempt(operation, result string) {
	globalManager.authAttempts.WithLabelValues(operation, result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateQueueSize sets the current change queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the change queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of change workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records how long one change took.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
