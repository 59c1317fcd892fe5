package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Checkout submission outcomes.
const (
	OutcomePlaced   = "placed"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeReplayed = "replayed"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	CartMutations       *prometheus.CounterVec
	CheckoutSubmissions *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers the storefront collectors on reg. Passing nil
// uses a fresh private registry, which keeps tests independent.
func NewServerMetrics(reg *prometheus.Registry) *ServerMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	cart := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "mutations_total",
		Help:      "Cart ledger mutations by operation.",
	}, []string{"op"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "submissions_total",
		Help:      "Checkout submissions by outcome.",
	}, []string{"outcome"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Storefront sessions currently held in memory.",
	})

	reg.MustRegister(requests, latency, cart, checkout, sessions)
	return &ServerMetrics{
		Requests:            requests,
		LatencyMS:           latency,
		CartMutations:       cart,
		CheckoutSubmissions: checkout,
		ActiveSessions:      sessions,
		gatherer:            reg,
	}
}

// CartMutation counts one ledger operation. Safe on a nil receiver.
func (m *ServerMetrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
}

// CheckoutSubmission counts one submission outcome. Safe on a nil receiver.
func (m *ServerMetrics) CheckoutSubmission(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSubmissions.WithLabelValues(outcome).Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
