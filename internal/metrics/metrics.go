// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event delivery outcomes for RealtimeEventsTotal
const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
	OutcomeRelayed   = "relayed"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge

	RateLimitExceededTotal *prometheus.CounterVec

	// Realtime delivery
	WebSocketConnections prometheus.Gauge
	RealtimeEventsTotal  *prometheus.CounterVec

	// Inbox activity
	MessagesSentTotal         prometheus.Counter
	NotificationsCreatedTotal *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all collectors once per process
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_active_requests",
					Help: "Requests currently being served",
				},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"path"},
			),
			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections_active",
					Help: "Open realtime socket connections on this instance",
				},
			),
			RealtimeEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_events_total",
					Help: "Realtime events by type and delivery outcome",
				},
				[]string{"type", "outcome"},
			),
			MessagesSentTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "messages_sent_total",
					Help: "Direct messages persisted",
				},
			),
			NotificationsCreatedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Notifications persisted by type",
				},
				[]string{"type"},
			),
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Errors by component",
				},
				[]string{"component"},
			),
		}
	})
	return instance
}

// Get returns the collectors, registering them on first use
func Get() *Metrics {
	return Initialize()
}
