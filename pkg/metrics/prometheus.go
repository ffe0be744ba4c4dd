// Package metrics provides Prometheus metrics for the wardwatch monitor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Reconciliation
	pollCycles      *prometheus.CounterVec
	staleResponses  *prometheus.CounterVec
	recordsSkipped  *prometheus.CounterVec
	unresolved      prometheus.Counter
	fetchLatency    *prometheus.HistogramVec
	dataFreshness   prometheus.Gauge
	criticalPatient prometheus.Gauge

	// Alerts and audit log
	activeAlerts      prometheus.Gauge
	alertTransitions  *prometheus.CounterVec
	alertAnnouncement prometheus.Counter
	sinkWrites        *prometheus.CounterVec

	// Focus and geolocation
	focusTriggers   *prometheus.CounterVec
	focusSuppressed prometheus.Counter
	geoFailures     *prometheus.CounterVec

	// Event loop
	queueSize   prometheus.Gauge
	taskLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager on a fresh registry with opts. Call it
// once at startup, before anything records.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wardwatch",
		subsystem:        "monitor",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.pollCycles = m.counterVec("poll_cycles_total", "Poll cycles by kind and result", "kind", "result")
	m.staleResponses = m.counterVec("stale_responses_total", "Superseded poll responses discarded", "kind")
	m.recordsSkipped = m.counterVec("records_skipped_total", "Malformed records skipped", "kind")
	m.unresolved = m.counter("unresolved_readings_total", "Vital readings without a resolvable patient id")
	m.fetchLatency = m.histogramVec("fetch_latency_milliseconds", "Source fetch latency in milliseconds", "kind")
	m.dataFreshness = m.gauge("data_freshness_unix", "Newest vital observation time applied")
	m.criticalPatient = m.gauge("critical_patients", "Patients currently at critical severity")

	m.activeAlerts = m.gauge("active_alerts", "Active alerts in the latest triage")
	m.alertTransitions = m.counterVec("alert_transitions_total", "Acknowledge and resolve commands by result", "action", "result")
	m.alertAnnouncement = m.counter("alerts_announced_total", "Newly seen active alerts written to the log")
	m.sinkWrites = m.counterVec("sink_writes_total", "Notification log writes by result", "result")

	m.focusTriggers = m.counterVec("focus_triggers_total", "Focus trigger increments by target kind", "kind")
	m.focusSuppressed = m.counter("focus_suppressed_total", "Critical refocus events suppressed by manual focus or tracking")
	m.geoFailures = m.counterVec("geo_failures_total", "Geolocation failures by kind", "kind")

	m.queueSize = m.gauge("queue_size", "Pending tasks on the reconciliation loop")
	m.taskLatency = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "task_latency_milliseconds",
		Help:        "Reconciliation task run time in milliseconds",
		Buckets:     []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: m.constLabels,
	})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordPollCycle counts one poll completion. result is "ok", "error" or "stale".
func RecordPollCycle(kind, result string) {
	globalManager.pollCycles.WithLabelValues(kind, result).Inc()
}

// RecordStaleResponse counts a discarded out-of-order response.
func RecordStaleResponse(kind string) {
	globalManager.staleResponses.WithLabelValues(kind).Inc()
}

// RecordSkipped adds n skipped malformed records of kind.
func RecordSkipped(kind string, n int) {
	if n > 0 {
		globalManager.recordsSkipped.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordUnresolved adds n unresolved vital readings.
func RecordUnresolved(n int) {
	if n > 0 {
		globalManager.unresolved.Add(float64(n))
	}
}

// RecordFetchLatency records a source fetch duration.
func RecordFetchLatency(kind string, d time.Duration) {
	globalManager.fetchLatency.WithLabelValues(kind).Observe(float64(d.Microseconds()) / 1000)
}

// UpdateDataFreshness sets the newest applied observation time.
func UpdateDataFreshness(t time.Time) {
	if !t.IsZero() {
		globalManager.dataFreshness.Set(float64(t.Unix()))
	}
}

// UpdateCriticalPatients sets the critical patient gauge.
func UpdateCriticalPatients(n int) {
	globalManager.criticalPatient.Set(float64(n))
}

// UpdateActiveAlerts sets the active alert gauge.
func UpdateActiveAlerts(n int) {
	globalManager.activeAlerts.Set(float64(n))
}

// RecordAlertTransition counts an acknowledge or resolve command.
// result is "applied", "noop" or "error".
func RecordAlertTransition(action, result string) {
	globalManager.alertTransitions.WithLabelValues(action, result).Inc()
}

// RecordAlertAnnounced counts a newly seen active alert.
func RecordAlertAnnounced() {
	globalManager.alertAnnouncement.Inc()
}

// RecordSinkWrite counts a notification log write. result is "ok" or "error".
func RecordSinkWrite(result string) {
	globalManager.sinkWrites.WithLabelValues(result).Inc()
}

// RecordFocusTrigger counts a focus trigger increment.
func RecordFocusTrigger(kind string) {
	globalManager.focusTriggers.WithLabelValues(kind).Inc()
}

// RecordFocusSuppressed counts a suppressed critical refocus.
func RecordFocusSuppressed() {
	globalManager.focusSuppressed.Inc()
}

// RecordGeoFailure counts a geolocation failure by kind.
func RecordGeoFailure(kind string) {
	globalManager.geoFailures.WithLabelValues(kind).Inc()
}

// UpdateQueueSize sets the pending task gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordTaskLatency records a loop task run time in milliseconds.
func RecordTaskLatency(latencyMs float64) {
	globalManager.taskLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
