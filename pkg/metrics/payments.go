package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Callback results recorded by ReconcileMetrics.
const (
	CallbackApplied   = "applied"
	CallbackReplayed  = "replayed"
	CallbackStale     = "stale"
	CallbackMalformed = "malformed"
	CallbackError     = "error"
)

// ReconcileMetrics records gateway callback reconciliation results.
type ReconcileMetrics struct {
	callbacks *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Gateway callbacks by reconciliation result and outcome.",
	}, []string{"result", "outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_callback_duration_seconds",
		Help:    "Time spent reconciling a gateway callback.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(callbacks, duration)
	return &ReconcileMetrics{callbacks: callbacks, duration: duration}
}

// Observe counts one callback. outcome is empty when no outcome was produced.
func (m *ReconcileMetrics) Observe(result, outcome string, elapsed time.Duration) {
	if m == nil || m.callbacks == nil {
		return
	}
	if outcome == "" {
		outcome = "none"
	}
	m.callbacks.WithLabelValues(normalizeLabel(result), outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
