// Package metrics exposes prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for operation counters.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
)

// Metrics holds the ledger's prometheus collectors. A nil *Metrics is
// valid and records nothing, so instrumentation stays optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	operations     *prometheus.CounterVec
	deployDuration prometheus.Histogram
	tokensTracked  prometheus.Gauge
}

// New creates and registers the ledger collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "issuerd",
		Name:      "ledger_operations_total",
		Help:      "Ledger operations by type and result.",
	}, []string{"op", "result"})

	m.deployDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "issuerd",
		Name:      "deploy_duration_seconds",
		Help:      "Wall time of external deployment attempts.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.tokensTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "issuerd",
		Name:      "tokens_tracked",
		Help:      "Number of token records in the ledger.",
	})

	m.registry.MustRegister(m.operations, m.deployDuration, m.tokensTracked)
	return m
}

// ObserveOp counts one ledger operation outcome.
func (m *Metrics) ObserveOp(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// ObserveDeploy records the duration of a deployment attempt.
func (m *Metrics) ObserveDeploy(d time.Duration) {
	if m == nil {
		return
	}
	m.deployDuration.Observe(d.Seconds())
}

// SetTokensTracked updates the token count gauge.
func (m *Metrics) SetTokensTracked(n int) {
	if m == nil {
		return
	}
	m.tokensTracked.Set(float64(n))
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
