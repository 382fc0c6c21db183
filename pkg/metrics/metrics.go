// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "byom_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "byom_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WSConnectionsActive tracks active websocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "byom_ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// ConversationsTotal tracks conversations created in the store.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "byom_conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks messages appended and broadcast, by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "byom_messages_total",
			Help: "Total messages appended to the conversation store",
		},
		[]string{"role"},
	)

	// EventsDropped tracks protocol events dropped at validation.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "byom_events_dropped_total",
			Help: "Total inbound events dropped as malformed",
		},
		[]string{"event"},
	)

	// ProxyErrors tracks upstream failures of the /api reverse proxy.
	ProxyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "byom_proxy_errors_total",
			Help: "Total reverse proxy upstream failures",
		},
	)

	// ChatRequestDuration tracks provider /chat invocation duration.
	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "byom_chat_duration_seconds",
			Help:    "Provider chat invocation duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordChat records a provider chat invocation.
func RecordChat(provider, status string, duration float64) {
	ChatRequestDuration.WithLabelValues(provider, status).Observe(duration)
}

// IncrementWSConnections increments the active websocket connection count.
func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

// DecrementWSConnections decrements the active websocket connection count.
func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
