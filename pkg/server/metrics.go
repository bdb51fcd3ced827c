package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server. Each server owns its
// own registry so tests can run many servers in one process.
type Metrics struct {
	registry *prometheus.Registry

	// Server metrics
	startTime prometheus.Gauge

	// Session metrics
	activeSessions       prometheus.Gauge
	sessionsCreated      prometheus.Counter
	sessionsDisconnected prometheus.Counter

	// Routing metrics
	messagesRouted  *prometheus.CounterVec
	broadcastFanout *prometheus.HistogramVec
	linesDelivered  prometheus.Counter

	// Policy metrics
	filterBlocked prometheus.Counter
	queueTimeouts prometheus.Counter
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		startTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_start_time_seconds",
				Help: "Unix time the server started accepting connections",
			},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_active_sessions",
				Help: "Current number of registered sessions",
			},
		),
		sessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_sessions_created_total",
				Help: "Total number of accepted connections",
			},
		),
		sessionsDisconnected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_sessions_disconnected_total",
				Help: "Total number of closed sessions",
			},
		),
		messagesRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_messages_routed_total",
				Help: "Total number of inbound lines routed, by addressing mode",
			},
			[]string{"mode"},
		),
		broadcastFanout: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_broadcast_fanout",
				Help:    "Number of recipient queues reached per routed message",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
			},
			[]string{"mode"},
		),
		linesDelivered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_lines_delivered_total",
				Help: "Total number of lines written to client sockets",
			},
		),
		filterBlocked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_filter_blocked_total",
				Help: "Total number of messages blocked by the banned-phrase filter",
			},
		),
		queueTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_queue_timeouts_total",
				Help: "Total number of sessions disconnected because their outbound queue stayed full",
			},
		),
	}
}

// Handler returns the HTTP handler exposing this server's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordStartTime records when the server began accepting connections
func (m *Metrics) RecordStartTime(t time.Time) {
	m.startTime.Set(float64(t.Unix()))
}

// RecordActiveSessions updates the registered session count
func (m *Metrics) RecordActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordSessionCreated increments the accepted-connection counter
func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordSessionDisconnected increments the closed-session counter
func (m *Metrics) RecordSessionDisconnected() {
	m.sessionsDisconnected.Inc()
}

// RecordMessageRouted increments the routed counter for an addressing mode
func (m *Metrics) RecordMessageRouted(mode string) {
	m.messagesRouted.WithLabelValues(mode).Inc()
}

// RecordBroadcastFanout records how many recipient queues a message reached
func (m *Metrics) RecordBroadcastFanout(mode string, recipientCount int) {
	m.broadcastFanout.WithLabelValues(mode).Observe(float64(recipientCount))
}

// RecordLineDelivered increments the delivered-line counter
func (m *Metrics) RecordLineDelivered() {
	m.linesDelivered.Inc()
}

// RecordFilterBlocked increments the blocked-message counter
func (m *Metrics) RecordFilterBlocked() {
	m.filterBlocked.Inc()
}

// RecordQueueTimeout increments the backpressure disconnect counter
func (m *Metrics) RecordQueueTimeout() {
	m.queueTimeouts.Inc()
}
