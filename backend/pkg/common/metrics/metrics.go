package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dealer_gateway"

// Metrics contains metrics exposed by the gateway.
type Metrics struct {
	// Handled requests by route and outcome ("ok" or an error kind)
	Requests *prometheus.CounterVec
	// Wall time of contract calls, connection bootstrap included, by
	// function, connector mode and outcome
	LedgerLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the gateway metrics on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Ledger requests handled, by route and outcome",
		}, []string{"route", "outcome"}),
		LedgerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_call_seconds",
			Help:      "Latency of contract submit/evaluate calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"function", "mode", "outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.LedgerLatency)
	return m
}

func (m *Metrics) ObserveRequest(route, outcome string) {
	m.Requests.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) ObserveLedgerCall(function, mode, outcome string, started time.Time) {
	m.LedgerLatency.WithLabelValues(function, mode, outcome).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
