package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	deadline time.Time
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return errors.New("write without deadline")
	}
	f.deadline = deadline
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_PublishStatusChanged(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "payment-status-changed", logger.New(environments.Test))
	occurred := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishStatusChanged(context.Background(), PaymentStatusChanged{
		Address:        "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		PreviousStatus: model.PaymentStatusAwaitingPayment,
		Status:         model.PaymentStatusPaymentDetected,
		TransactionID:  "tx-1",
		EventKind:      "unconfirmed-tx",
		OccurredAt:     occurred.UnixMilli(),
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", string(msg.Key))
	assert.True(t, occurred.Equal(msg.Time))

	var decoded PaymentStatusChanged
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, model.PaymentStatusPaymentDetected, decoded.Status)
	assert.Equal(t, model.PaymentStatusAwaitingPayment, decoded.PreviousStatus)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newKafkaPublisher(w, "payment-status-changed", logger.New(environments.Test))

	err := p.PublishStatusChanged(context.Background(), PaymentStatusChanged{Address: "a"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaPublisher_WaitIsBounded(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "payment-status-changed", logger.New(environments.Test))

	require.NoError(t, p.PublishStatusChanged(context.Background(), PaymentStatusChanged{Address: "a"}))
	assert.LessOrEqual(t, time.Until(w.deadline), enqueueTimeout)
}

func TestNew_WritesInTheBackground(t *testing.T) {
	cfg := &config.AppConfig{Kafka: config.KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		StatusTopic: "payment-status-changed",
	}}
	p, ok := New(cfg, logger.New(environments.Test)).(*kafkaPublisher)
	require.True(t, ok)

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, w.Async)
	assert.NotNil(t, w.Completion)
	assert.Equal(t, "payment-status-changed", w.Topic)

	// failed background deliveries are only logged
	p.onDelivered([]kafka.Message{{Key: []byte("a")}}, errors.New("leader not available"))
	p.onDelivered([]kafka.Message{{Key: []byte("a")}}, nil)

	require.NoError(t, p.Close())
}

func TestNew_DisabledWithoutBrokers(t *testing.T) {
	p := New(&config.AppConfig{}, logger.New(environments.Test))

	assert.IsType(t, noop{}, p)
	assert.NoError(t, p.PublishStatusChanged(context.Background(), PaymentStatusChanged{}))
	assert.NoError(t, p.Close())
}
