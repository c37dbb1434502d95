package metrics

import "github.com/prometheus/client_golang/prometheus"

// Publish results recorded by OutboxMetrics.
const (
	PublishOK       = "published"
	PublishFailed   = "failed"
	PublishTerminal = "terminal"
)

// OutboxMetrics records outbox publisher progress.
type OutboxMetrics struct {
	events *prometheus.CounterVec
}

// NewOutboxMetrics registers the publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by the publisher, by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(events)
	return &OutboxMetrics{events: events}
}

// Inc counts one handled event.
func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
