package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestIngestionMetrics(t *testing.T) {
	metrics := NewIngestionMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	metrics.RecordNotification("tx-confirmation", "accepted")
	metrics.RecordNotification("tx-confirmation", "accepted")
	metrics.RecordNotification("bogus", "invalid_input")
	metrics.RecordEvents("processed", 2)
	metrics.RecordEvents("ignored", 0)
	metrics.RecordTransition("awaiting_payment", "payment_detected")
	metrics.RecordPublish("payment_detected")

	assert.Equal(t, float64(2), counterValue(t, registry, "paywatch_webhook_notifications_total", "outcome", "accepted"))
	assert.Equal(t, float64(1), counterValue(t, registry, "paywatch_webhook_notifications_total", "event_kind", "bogus"))
	assert.Equal(t, float64(2), counterValue(t, registry, "paywatch_webhook_events_total", "outcome", "processed"))
	assert.Equal(t, float64(0), counterValue(t, registry, "paywatch_webhook_events_total", "outcome", "ignored"))
	assert.Equal(t, float64(1), counterValue(t, registry, "paywatch_payment_status_transitions_total", "to", "payment_detected"))
	assert.Equal(t, float64(1), counterValue(t, registry, "paywatch_status_events_published_total", "status", "payment_detected"))
}
