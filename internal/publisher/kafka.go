package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

const (
	// enqueueTimeout bounds how long a webhook request may wait on a full
	// writer queue. Delivery itself happens in the background.
	enqueueTimeout = 2 * time.Second
	writeTimeout   = 10 * time.Second
	batchTimeout   = 50 * time.Millisecond
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// New returns a Kafka publisher, or a no-op one when no brokers are configured.
func New(cfg *config.AppConfig, logger *logger.Logger) IPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("[publisher.New] kafka disabled, status events will not be published")
		return NewNoop()
	}

	p := newKafkaPublisher(nil, cfg.Kafka.StatusTopic, logger)
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.StatusTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		Completion:             p.onDelivered,
	}
	return p
}

func newKafkaPublisher(w messageWriter, topic string, logger *logger.Logger) *kafkaPublisher {
	return &kafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *kafkaPublisher) PublishStatusChanged(ctx context.Context, event PaymentStatusChanged) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal status event")
	}

	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	// keyed by address so every event of one payment lands on one partition
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Address),
		Value: value,
		Time:  time.UnixMilli(event.OccurredAt),
	})
	if err != nil {
		p.logger.Error("[PublishStatusChanged][WriteMessages]", map[string]string{
			"topic":   p.topic,
			"address": event.Address,
			"error":   err.Error(),
		})
		return errors.Wrapf(err, "failed to publish status event to %s", p.topic)
	}

	return nil
}

// onDelivered reports the outcome of background writes.
func (p *kafkaPublisher) onDelivered(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Error("[PublishStatusChanged][Completion]", map[string]string{
			"topic":   p.topic,
			"address": string(m.Key),
			"error":   err.Error(),
		})
	}
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
