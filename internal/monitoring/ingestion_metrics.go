package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestionMetrics counts webhook notifications and what happened to the
// per-address events extracted from them.
type IngestionMetrics struct {
	notifications *prometheus.CounterVec
	events        *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	published     *prometheus.CounterVec
}

func NewIngestionMetrics() *IngestionMetrics {
	return &IngestionMetrics{
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_webhook_notifications_total",
				Help: "Webhook notifications received, by event kind and outcome",
			},
			[]string{"event_kind", "outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_webhook_events_total",
				Help: "Per-address events extracted from notifications, by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_payment_status_transitions_total",
				Help: "Payment status changes applied to the store",
			},
			[]string{"from", "to"},
		),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_status_events_published_total",
				Help: "Status change events handed to the message broker",
			},
			[]string{"status"},
		),
	}
}

func (m *IngestionMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.notifications,
		m.events,
		m.transitions,
		m.published,
	)
}

// RecordNotification is called once per notification; outcome is "accepted"
// or the error kind that made it fail.
func (m *IngestionMetrics) RecordNotification(eventKind, outcome string) {
	m.notifications.WithLabelValues(eventKind, outcome).Inc()
}

func (m *IngestionMetrics) RecordEvents(outcome string, count int) {
	if count <= 0 {
		return
	}
	m.events.WithLabelValues(outcome).Add(float64(count))
}

func (m *IngestionMetrics) RecordTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *IngestionMetrics) RecordPublish(status string) {
	m.published.WithLabelValues(status).Inc()
}
