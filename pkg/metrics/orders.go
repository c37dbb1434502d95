package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics records order status transitions.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	refunds     prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transition attempts by edge and result.",
	}, []string{"from", "to", "result"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_refunds_requested_total",
		Help: "Cancellations that moved a settled gateway payment to REFUNDING.",
	})
	reg.MustRegister(transitions, refunds)
	return &OrderMetrics{transitions: transitions, refunds: refunds}
}

// IncTransition counts one transition attempt.
func (m *OrderMetrics) IncTransition(from, to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

// IncRefundRequested counts one refund obligation.
func (m *OrderMetrics) IncRefundRequested() {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.Inc()
}
