// Package metric provides Prometheus metrics for the bridge: request
// counters at the router boundary, session lifecycle gauges, and message
// flow counters.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all bridge-level metrics.
type Metrics struct {
	// Router metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsExpired prometheus.Counter

	// Message flow metrics
	MessagesDelivered prometheus.Counter
	MessagesDrained   prometheus.Counter
	HandlerFailures   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all bridge metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cirrus",
				Subsystem: "router",
				Name:      "requests_total",
				Help:      "Total number of routed requests",
			},
			[]string{"route", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cirrus",
				Subsystem: "router",
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cirrus",
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Number of live sessions",
			},
		),

		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cirrus",
				Subsystem: "sessions",
				Name:      "created_total",
				Help:      "Total number of sessions created",
			},
		),

		SessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cirrus",
				Subsystem: "sessions",
				Name:      "expired_total",
				Help:      "Total number of sessions evicted by the idle sweeper",
			},
		),

		MessagesDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cirrus",
				Subsystem: "messages",
				Name:      "delivered_total",
				Help:      "Total inbound messages delivered to the protocol handler",
			},
		),

		MessagesDrained: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cirrus",
				Subsystem: "messages",
				Name:      "drained_total",
				Help:      "Total outbound messages drained by polls",
			},
		),

		HandlerFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cirrus",
				Subsystem: "messages",
				Name:      "handler_failures_total",
				Help:      "Total protocol handler failures at the delivery boundary",
			},
		),
	}
}

// collectors returns every metric for bulk registration.
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDuration,
		m.SessionsActive,
		m.SessionsCreated,
		m.SessionsExpired,
		m.MessagesDelivered,
		m.MessagesDrained,
		m.HandlerFailures,
	}
}
