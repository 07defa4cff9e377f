// Package metrics provides Prometheus metrics for the kala service.
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
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Leaderboard
	scoresRecorded     prometheus.Counter
	scoresRejected     *prometheus.CounterVec
	recordScoreLatency prometheus.Histogram
	playersTotal       prometheus.Gauge

	// Ratings and orders
	reviewsAttached    prometheus.Counter
	reviewsRejected    *prometheus.CounterVec
	reviewsDeactivated prometheus.Counter
	reviewsReported    prometheus.Counter
	ratingRecomputes   prometheus.Counter
	ratingLatency      prometheus.Histogram
	ordersPlaced       prometheus.Counter
	orderTransitions   *prometheus.CounterVec

	// Storage
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Submissions rejected by idempotency keys
	duplicateSubmissions *prometheus.CounterVec

	// Events and live feed
	eventsPublished     *prometheus.CounterVec
	eventPublishErrors  *prometheus.CounterVec
	eventsDispatched    *prometheus.CounterVec
	dispatchLatency     prometheus.Histogram
	dispatcherWorkers   prometheus.Gauge
	liveClients         prometheus.Gauge
	outboxDropped       prometheus.Counter
	rateLimitedRequests *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton used by package helpers

// Custom registry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared exposition registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kala",
		subsystem:        "service",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.scoresRecorded = auto.NewCounter(m.counterOpts("scores_recorded_total", "Score submissions applied to the leaderboard"))
	m.scoresRejected = auto.NewCounterVec(m.counterOpts("scores_rejected_total", "Score submissions rejected before mutation"), []string{"reason"})
	m.recordScoreLatency = auto.NewHistogram(m.histogramOpts("record_score_latency_milliseconds", "Latency of RecordScore including rank lookup"))
	m.playersTotal = auto.NewGauge(m.gaugeOpts("players_total", "Distinct players on the leaderboard"))

	m.reviewsAttached = auto.NewCounter(m.counterOpts("reviews_attached_total", "Reviews attached to delivered orders"))
	m.reviewsRejected = auto.NewCounterVec(m.counterOpts("reviews_rejected_total", "Review attachments rejected"), []string{"reason"})
	m.reviewsDeactivated = auto.NewCounter(m.counterOpts("reviews_deactivated_total", "Reviews deactivated by moderation"))
	m.reviewsReported = auto.NewCounter(m.counterOpts("reviews_reported_total", "Reviews flagged for moderation"))
	m.ratingRecomputes = auto.NewCounter(m.counterOpts("rating_recomputes_total", "Artist rating recomputations"))
	m.ratingLatency = auto.NewHistogram(m.histogramOpts("rating_recompute_latency_milliseconds", "Latency of artist rating recomputation"))
	m.ordersPlaced = auto.NewCounter(m.counterOpts("orders_placed_total", "Marketplace orders placed"))
	m.orderTransitions = auto.NewCounterVec(m.counterOpts("order_transitions_total", "Order status transitions by target status"), []string{"status"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds", "Store operation latency"), []string{"backend", "op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Store operation failures"), []string{"backend", "op"})

	m.duplicateSubmissions = auto.NewCounterVec(m.counterOpts("duplicate_submissions_total", "Requests rejected by idempotency key"), []string{"scope"})

	m.eventsPublished = auto.NewCounterVec(m.counterOpts("events_published_total", "Domain events published"), []string{"topic"})
	m.eventPublishErrors = auto.NewCounterVec(m.counterOpts("event_publish_errors_total", "Domain events that failed to publish"), []string{"topic"})
	m.eventsDispatched = auto.NewCounterVec(m.counterOpts("events_dispatched_total", "Domain events fanned out to live clients"), []string{"topic"})
	m.dispatchLatency = auto.NewHistogram(m.histogramOpts("event_dispatch_latency_milliseconds", "Time spent fanning an event out to live clients"))
	m.dispatcherWorkers = auto.NewGauge(m.gaugeOpts("dispatcher_workers", "Running event dispatcher workers"))
	m.liveClients = auto.NewGauge(m.gaugeOpts("live_clients", "Connected websocket clients"))
	m.outboxDropped = auto.NewCounter(m.counterOpts("outbox_dropped_total", "Live events dropped because a client outbox was full"))
	m.rateLimitedRequests = auto.NewCounterVec(m.counterOpts("rate_limited_requests_total", "Requests refused by the rate limiter"), []string{"endpoint"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and error type"),
		[]string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds"))
}

// Leaderboard helpers.

func RecordScoreRecorded(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoresRecorded.Inc()
	globalManager.recordScoreLatency.Observe(latencyMs)
}

func RecordScoreRejected(reason string) {
	if globalManager.enabled {
		globalManager.scoresRejected.WithLabelValues(reason).Inc()
	}
}

func UpdatePlayersTotal(n int) {
	if globalManager.enabled {
		globalManager.playersTotal.Set(float64(n))
	}
}

// Rating and order helpers.

func RecordReviewAttached() {
	if globalManager.enabled {
		globalManager.reviewsAttached.Inc()
	}
}

func RecordReviewRejected(reason string) {
	if globalManager.enabled {
		globalManager.reviewsRejected.WithLabelValues(reason).Inc()
	}
}

func RecordReviewDeactivated() {
	if globalManager.enabled {
		globalManager.reviewsDeactivated.Inc()
	}
}

func RecordReviewReported() {
	if globalManager.enabled {
		globalManager.reviewsReported.Inc()
	}
}

func RecordRatingRecompute(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.ratingRecomputes.Inc()
	globalManager.ratingLatency.Observe(latencyMs)
}

func RecordOrderPlaced() {
	if globalManager.enabled {
		globalManager.ordersPlaced.Inc()
	}
}

func RecordOrderTransition(status string) {
	if globalManager.enabled {
		globalManager.orderTransitions.WithLabelValues(status).Inc()
	}
}

// Store helpers.

func RecordStoreLatency(backend, op string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
	}
}

func RecordStoreError(backend, op string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

func RecordDuplicateSubmission(scope string) {
	if globalManager.enabled {
		globalManager.duplicateSubmissions.WithLabelValues(scope).Inc()
	}
}

// Event and live feed helpers.

func RecordEventPublished(topic string) {
	if globalManager.enabled {
		globalManager.eventsPublished.WithLabelValues(topic).Inc()
	}
}

func RecordEventPublishError(topic string) {
	if globalManager.enabled {
		globalManager.eventPublishErrors.WithLabelValues(topic).Inc()
	}
}

func RecordEventDispatched(topic string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsDispatched.WithLabelValues(topic).Inc()
	globalManager.dispatchLatency.Observe(latencyMs)
}

func UpdateDispatcherWorkers(n int) {
	if globalManager.enabled {
		globalManager.dispatcherWorkers.Set(float64(n))
	}
}

func UpdateLiveClients(n int) {
	if globalManager.enabled {
		globalManager.liveClients.Set(float64(n))
	}
}

func RecordOutboxDropped() {
	if globalManager.enabled {
		globalManager.outboxDropped.Inc()
	}
}

func RecordRateLimited(endpoint string) {
	if globalManager.enabled {
		globalManager.rateLimitedRequests.WithLabelValues(endpoint).Inc()
	}
}

// HTTP helpers.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// Error helpers.

func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// System helpers.

func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
