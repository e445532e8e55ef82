package eventbus

import (
	"context"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/allisson/catalog/internal/outbox/domain"
)

// KafkaEventBus publishes outbox entries to a Kafka topic. The message key is
// the aggregate ID so a single aggregate's events land on one partition and
// keep their relative order.
type KafkaEventBus struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaEventBus creates a new KafkaEventBus writing to the given topic.
func NewKafkaEventBus(brokers string, topic string, logger *slog.Logger) *KafkaEventBus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}

	return &KafkaEventBus{
		writer: writer,
		logger: logger,
	}
}

// Publish writes the event to the Kafka topic.
func (b *KafkaEventBus) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: []byte(event.Payload),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID.String())},
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		},
	}

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error(
			"kafka publish failed",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (b *KafkaEventBus) Close() error {
	return b.writer.Close()
}
