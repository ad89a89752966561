package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide request counters and latency histogram on a
// private registry, so tests can run against isolated instances instead of
// the default global one.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestsTotal counts every HTTP request by method, path and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// WebhookRequestsTotal counts webhook processing outcomes.
	WebhookRequestsTotal *prometheus.CounterVec

	// RequestLatency records request latency in milliseconds.
	RequestLatency *prometheus.HistogramVec
}

// New creates a Metrics instance backed by a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_requests_total",
				Help: "Total webhook processing outcomes",
			},
			[]string{"result"},
		),

		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_latency_ms",
				Help:    "Request latency in milliseconds",
				Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"method", "path"},
		),
	}
}

// Handler returns the Prometheus text exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
