// Package metrics provides Prometheus metrics for the XLENS verification service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the verification service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Submission pipeline
	jumpsSubmitted     prometheus.Counter
	jumpsCompleted     prometheus.Counter
	jumpsFlagged       *prometheus.CounterVec
	jumpsFailed        prometheus.Counter
	jumpsDuplicate     prometheus.Counter
	measurementLatency prometheus.Histogram
	tierAssigned       *prometheus.CounterVec

	// Gate scoring
	gateScore    *prometheus.HistogramVec
	cryptoChecks *prometheus.CounterVec

	// Oracle
	oracleCalls   *prometheus.CounterVec
	oracleLatency prometheus.Histogram

	// Sessions and devices
	sessionsCreated   prometheus.Counter
	sessionsConsumed  prometheus.Counter
	sessionsRejected  *prometheus.CounterVec
	devicesRegistered *prometheus.CounterVec
	devicesRevoked    prometheus.Counter

	// Certificates and leaderboard
	certificatesIssued   prometheus.Counter
	certificateVerifies  prometheus.Counter
	leaderboardUpdates   prometheus.Counter
	leaderboardErrors    prometheus.Counter
	dailyCapRejections   prometheus.Counter
	totalRankedAthletes  prometheus.Gauge
	rankRecomputeLatency prometheus.Histogram

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerErrors       prometheus.Counter
	workerRetries      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "xlens",
		subsystem:        "verify",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations are flat by nature
	auto := promauto.With(m.registry)

	m.jumpsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jumps_submitted_total",
		Help:      "Total number of jump proofs accepted for processing",
	})

	m.jumpsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jumps_completed_total",
		Help:      "Total number of jumps that reached a verified measurement",
	})

	m.jumpsFlagged = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "jumps_flagged_total",
			Help:      "Total number of jumps flagged, by reason",
		},
		[]string{"reason"},
	)

	m.jumpsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jumps_failed_total",
		Help:      "Total number of jumps that could not be measured",
	})

	m.jumpsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jumps_duplicate_total",
		Help:      "Total number of duplicate measurement tasks suppressed",
	})

	m.measurementLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "measurement_latency_milliseconds",
		Help:      "End to end measurement pipeline latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.tierAssigned = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "tier_assigned_total",
			Help:      "Total number of verified jumps by assigned tier",
		},
		[]string{"tier"},
	)

	m.gateScore = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "gate_score",
			Help:      "Distribution of per-gate trust scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"gate"},
	)

	m.cryptoChecks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "crypto_checks_total",
			Help:      "Total number of device signature verifications by outcome",
		},
		[]string{"outcome"},
	)

	m.oracleCalls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "oracle_calls_total",
			Help:      "Total number of measurement oracle calls by outcome",
		},
		[]string{"outcome"},
	)

	m.oracleLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_latency_milliseconds",
		Help:      "Measurement oracle call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_created_total",
		Help:      "Total number of capture sessions issued",
	})

	m.sessionsConsumed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_consumed_total",
		Help:      "Total number of capture sessions consumed by a submission",
	})

	m.sessionsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "sessions_rejected_total",
			Help:      "Total number of session validation failures by reason",
		},
		[]string{"reason"},
	)

	m.devicesRegistered = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "devices_registered_total",
			Help:      "Total number of device keys enrolled by hardware level",
		},
		[]string{"hardware_level"},
	)

	m.devicesRevoked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "devices_revoked_total",
		Help:      "Total number of device keys revoked",
	})

	m.certificatesIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "certificates_issued_total",
		Help:      "Total number of verified performance certificates issued",
	})

	m.certificateVerifies = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "certificate_verifies_total",
		Help:      "Total number of public certificate verification lookups",
	})

	m.leaderboardUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_updates_total",
		Help:      "Total number of leaderboard best-score updates",
	})

	m.leaderboardErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_errors_total",
		Help:      "Total number of leaderboard update errors",
	})

	m.dailyCapRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "daily_cap_rejections_total",
		Help:      "Total number of submissions rejected by the daily cap",
	})

	m.totalRankedAthletes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_athletes_total",
		Help:      "Total number of athletes holding a leaderboard entry",
	})

	m.rankRecomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_recompute_latency_milliseconds",
		Help:      "Batch rank recompute latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the measurement task queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum measurement task queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of measurement tasks enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of measurement tasks dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue rejections (queue full)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of measurement workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.workerRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_retries_total",
		Help:      "Total number of measurement task retries",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordJumpSubmitted increments the accepted submissions counter.
func RecordJumpSubmitted() {
	globalManager.jumpsSubmitted.Inc()
}

// RecordJumpCompleted increments the verified measurements counter.
func RecordJumpCompleted() {
	globalManager.jumpsCompleted.Inc()
}

// RecordJumpFlagged increments the flagged counter for a reason.
func RecordJumpFlagged(reason string) {
	globalManager.jumpsFlagged.WithLabelValues(reason).Inc()
}

// RecordJumpFailed increments the unmeasurable-jumps counter.
func RecordJumpFailed() {
	globalManager.jumpsFailed.Inc()
}

// RecordJumpDuplicate increments the suppressed-duplicate counter.
func RecordJumpDuplicate() {
	globalManager.jumpsDuplicate.Inc()
}

// RecordMeasurementLatency records pipeline latency in milliseconds.
func RecordMeasurementLatency(latencyMs float64) {
	globalManager.measurementLatency.Observe(latencyMs)
}

// RecordTierAssigned increments the per-tier counter.
func RecordTierAssigned(tier string) {
	globalManager.tierAssigned.WithLabelValues(tier).Inc()
}

// RecordGateScore records one gate's score.
func RecordGateScore(gate string, score float64) {
	globalManager.gateScore.WithLabelValues(gate).Observe(score)
}

// RecordCryptoCheck records a signature verification outcome ("valid" or "invalid").
func RecordCryptoCheck(outcome string) {
	globalManager.cryptoChecks.WithLabelValues(outcome).Inc()
}

// RecordOracleCall records an oracle call outcome ("ok", "error", "timeout").
func RecordOracleCall(outcome string) {
	globalManager.oracleCalls.WithLabelValues(outcome).Inc()
}

// RecordOracleLatency records oracle call latency in milliseconds.
func RecordOracleLatency(latencyMs float64) {
	globalManager.oracleLatency.Observe(latencyMs)
}

// RecordSessionCreated increments the sessions issued counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionConsumed increments the sessions consumed counter.
func RecordSessionConsumed() {
	globalManager.sessionsConsumed.Inc()
}

// RecordSessionRejected increments the session rejection counter for a reason.
func RecordSessionRejected(reason string) {
	globalManager.sessionsRejected.WithLabelValues(reason).Inc()
}

// RecordDeviceRegistered increments the enrollment counter for a hardware level.
func RecordDeviceRegistered(hardwareLevel string) {
	globalManager.devicesRegistered.WithLabelValues(hardwareLevel).Inc()
}

// RecordDeviceRevoked increments the revocation counter.
func RecordDeviceRevoked() {
	globalManager.devicesRevoked.Inc()
}

// RecordCertificateIssued increments the certificates issued counter.
func RecordCertificateIssued() {
	globalManager.certificatesIssued.Inc()
}

// RecordCertificateVerify increments the public verification counter.
func RecordCertificateVerify() {
	globalManager.certificateVerifies.Inc()
}

// RecordLeaderboardUpdate increments the best-score update counter.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// RecordLeaderboardError increments the leaderboard error counter.
func RecordLeaderboardError() {
	globalManager.leaderboardErrors.Inc()
}

// RecordDailyCapRejection increments the daily cap rejection counter.
func RecordDailyCapRejection() {
	globalManager.dailyCapRejections.Inc()
}

// UpdateTotalRankedAthletes sets the ranked athletes gauge.
func UpdateTotalRankedAthletes(count int) {
	globalManager.totalRankedAthletes.Set(float64(count))
}

// RecordRankRecomputeLatency records batch recompute latency in milliseconds.
func RecordRankRecomputeLatency(latencyMs float64) {
	globalManager.rankRecomputeLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue rejection counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerRetry increments the retry counter.
func RecordWorkerRetry() {
	globalManager.workerRetries.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
