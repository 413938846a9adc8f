// Package metrics provides Prometheus metrics for the hiscore leaderboard service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Submission results used as label values.
const (
	ResultCreated   = "created"
	ResultImproved  = "improved"
	ResultUnchanged = "unchanged"
	ResultInvalid   = "invalid"
	ResultFailed    = "failed"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Score store
	submissions       *prometheus.CounterVec
	scoreUpdates      prometheus.Counter
	storageErrors     *prometheus.CounterVec
	totalPlayers      prometheus.Gauge
	repositoryLatency *prometheus.HistogramVec

	// Broadcaster
	observersActive    prometheus.Gauge
	observersTotal     *prometheus.CounterVec
	snapshotsPublished *prometheus.CounterVec
	snapshotLatency    prometheus.Histogram
	mailboxDrops       prometheus.Counter
	deliveryFailures   *prometheus.CounterVec

	// Change queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hiscore",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("submissions_total"),
		Help: "Score submissions by result (created, improved, unchanged, invalid, failed)",
	}, []string{"result"})

	m.scoreUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("score_updates_total"),
		Help: "Submissions that raised or created a best score",
	})

	m.storageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("storage_errors_total"),
		Help: "Storage failures by backend and operation",
	}, []string{"backend", "op"})

	m.totalPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("players"),
		Help: "Number of distinct names held by the store",
	})

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("repository_latency_milliseconds"),
		Help:    "Repository operation latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"backend", "op"})

	m.observersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("observers_active"),
		Help: "Stream observers currently registered",
	})

	m.observersTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("observers_total"),
		Help: "Observer registrations and deregistrations",
	}, []string{"event"})

	m.snapshotsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("snapshots_published_total"),
		Help: "Top-N snapshots taken for delivery, by trigger",
	}, []string{"trigger"})

	m.snapshotLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("snapshot_latency_milliseconds"),
		Help:    "Time to read a top-N snapshot in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.mailboxDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("mailbox_replaced_total"),
		Help: "Undelivered snapshots replaced by a fresher one",
	})

	m.deliveryFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("delivery_failures_total"),
		Help: "Observer transport failures by transport",
	}, []string{"transport"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_size"),
		Help: "Pending change notifications",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_capacity"),
		Help: "Capacity of the change notification queue",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_enqueued_total"),
		Help: "Change notifications enqueued",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_dequeued_total"),
		Help: "Change notifications dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("queue_enqueue_errors_total"),
		Help: "Change notifications rejected by the queue, by reason",
	}, []string{"reason"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("http_errors_total"),
		Help: "HTTP error responses by endpoint and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("memory_bytes"),
		Help: "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name: m.name("goroutines"),
		Help: "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: constLabels,
		Name:    m.name("gc_pause_milliseconds"),
		Help:    "Average GC pause in milliseconds",
		Buckets: m.histogramBuckets,
	})
}

// RecordSubmission counts a submission outcome.
func RecordSubmission(result string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.submissions.WithLabelValues(result).Inc()
	if result == ResultCreated || result == ResultImproved {
		globalManager.scoreUpdates.Inc()
	}
}

// RecordStorageError counts a failed repository call.
func RecordStorageError(backend, op string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.storageErrors.WithLabelValues(backend, op).Inc()
}

// RecordRepositoryLatency observes a repository call in milliseconds.
func RecordRepositoryLatency(backend, op string, latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.repositoryLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// UpdateTotalPlayers sets the number of stored names.
func UpdateTotalPlayers(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.totalPlayers.Set(float64(count))
}

// UpdateObserversActive sets the registered observer gauge.
func UpdateObserversActive(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.observersActive.Set(float64(count))
}

// RecordObserverRegistered counts a new observer.
func RecordObserverRegistered() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.observersTotal.WithLabelValues("registered").Inc()
}

// RecordObserverUnregistered counts a removed observer.
func RecordObserverUnregistered() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.observersTotal.WithLabelValues("unregistered").Inc()
}

// RecordSnapshot counts a snapshot and its read latency.
func RecordSnapshot(trigger string, latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.snapshotsPublished.WithLabelValues(trigger).Inc()
	globalManager.snapshotLatency.Observe(latencyMs)
}

// RecordMailboxReplaced counts a pending snapshot superseded before delivery.
func RecordMailboxReplaced() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.mailboxDrops.Inc()
}

// RecordDeliveryFailure counts an observer transport failure.
func RecordDeliveryFailure(transport string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.deliveryFailures.WithLabelValues(transport).Inc()
}

// UpdateQueueSize sets the pending notification gauge.
func UpdateQueueSize(size int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted notification.
func RecordQueueEnqueue() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a consumed notification.
func RecordQueueDequeue() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected notification.
func RecordQueueEnqueueError(reason string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
