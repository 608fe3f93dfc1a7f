package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Call lifecycle metrics
	callsInitiatedTotal *prometheus.CounterVec
	callsEndedTotal     *prometheus.CounterVec
	callDuration        *prometheus.HistogramVec
	activeCalls         prometheus.Gauge

	// Presence metrics
	presenceUpdatesTotal *prometheus.CounterVec
	presenceSweepsTotal  prometheus.Counter
	presenceSweptRecords prometheus.Counter

	// Realtime publish metrics
	realtimePublishTotal *prometheus.CounterVec

	// WebSocket metrics
	wsConnections prometheus.Gauge

	// Email bridge metrics
	emailsSentTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with its own registry
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "endpoint", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: labels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "endpoint"}),
		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Current number of in-flight HTTP requests",
			ConstLabels: labels,
		}),
		callsInitiatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "chat_calls_initiated_total",
			Help:        "Total number of call sessions initiated",
			ConstLabels: labels,
		}, []string{"call_type"}),
		callsEndedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "chat_calls_ended_total",
			Help:        "Total number of call sessions reaching a terminal state",
			ConstLabels: labels,
		}, []string{"status"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "chat_call_duration_seconds",
			Help:        "Total duration of ended calls",
			ConstLabels: labels,
			Buckets:     []float64{10, 30, 60, 300, 600, 1800, 3600},
		}, []string{"call_type"}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chat_active_calls",
			Help:        "Current number of active call sessions",
			ConstLabels: labels,
		}),
		presenceUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "chat_presence_updates_total",
			Help:        "Total number of presence status updates",
			ConstLabels: labels,
		}, []string{"status"}),
		presenceSweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "chat_presence_sweeps_total",
			Help:        "Total number of stale-presence sweep runs",
			ConstLabels: labels,
		}),
		presenceSweptRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "chat_presence_swept_records_total",
			Help:        "Total number of records demoted to offline by the sweep",
			ConstLabels: labels,
		}),
		realtimePublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "chat_realtime_publish_total",
			Help:        "Total number of realtime event publishes",
			ConstLabels: labels,
		}, []string{"event", "status"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "chat_websocket_connections",
			Help:        "Current number of active WebSocket connections",
			ConstLabels: labels,
		}),
		emailsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "chat_emails_sent_total",
			Help:        "Total number of message-bridge emails sent",
			ConstLabels: labels,
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.callsInitiatedTotal,
		m.callsEndedTotal,
		m.callDuration,
		m.activeCalls,
		m.presenceUpdatesTotal,
		m.presenceSweepsTotal,
		m.presenceSweptRecords,
		m.realtimePublishTotal,
		m.wsConnections,
		m.emailsSentTotal,
	)

	return m
}

// GetRegistry returns the underlying registry for the /metrics endpoint
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordCallInitiated records a new call session
func (m *Metrics) RecordCallInitiated(callType string) {
	m.callsInitiatedTotal.WithLabelValues(callType).Inc()
	m.activeCalls.Inc()
}

// RecordCallEnded records a terminal call transition
func (m *Metrics) RecordCallEnded(callType, status string, duration time.Duration) {
	m.callsEndedTotal.WithLabelValues(status).Inc()
	m.callDuration.WithLabelValues(callType).Observe(duration.Seconds())
	m.activeCalls.Dec()
}

// RecordPresenceUpdate records an explicit status update
func (m *Metrics) RecordPresenceUpdate(status string) {
	m.presenceUpdatesTotal.WithLabelValues(status).Inc()
}

// RecordPresenceSweep records one sweep run and how many records it demoted
func (m *Metrics) RecordPresenceSweep(swept int64) {
	m.presenceSweepsTotal.Inc()
	m.presenceSweptRecords.Add(float64(swept))
}

// RecordRealtimePublish records a publish attempt outcome
func (m *Metrics) RecordRealtimePublish(event string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.realtimePublishTotal.WithLabelValues(event, status).Inc()
}

// SetWebSocketConnections sets the current WS connection count
func (m *Metrics) SetWebSocketConnections(count int) {
	m.wsConnections.Set(float64(count))
}

// RecordEmail records an email bridge attempt outcome
func (m *Metrics) RecordEmail(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.emailsSentTotal.WithLabelValues(status).Inc()
}
