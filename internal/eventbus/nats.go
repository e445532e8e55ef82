package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/allisson/catalog/internal/outbox/domain"
)

// NATSEventBus publishes outbox entries to a NATS JetStream stream. The
// JetStream Msg-Id header is set to the event ID so the broker deduplicates
// redeliveries within its dedup window.
type NATSEventBus struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
	logger        *slog.Logger
}

// NewNATSEventBus connects to NATS and ensures the stream exists.
func NewNATSEventBus(url, stream, subjectPrefix string, logger *slog.Logger) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("catalog-outbox"))
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ensureStream(js, stream, subjectPrefix); err != nil {
		conn.Close()
		return nil, err
	}

	return &NATSEventBus{
		conn:          conn,
		js:            js,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}, nil
}

// Publish writes the event to a subject derived from its type.
func (b *NATSEventBus) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	subject := fmt.Sprintf("%s.%s", b.subjectPrefix, event.EventType)

	msg := nats.NewMsg(subject)
	msg.Data = []byte(event.Payload)
	msg.Header.Set(nats.MsgIdHdr, event.ID.String())
	msg.Header.Set("Event-Type", event.EventType)
	msg.Header.Set("Aggregate-Id", event.AggregateID.String())

	if _, err := b.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		b.logger.Error(
			"nats publish failed",
			slog.String("event_id", event.ID.String()),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// Close drains the connection.
func (b *NATSEventBus) Close() error {
	b.conn.Close()
	return nil
}

func ensureStream(js nats.JetStreamContext, stream, subjectPrefix string) error {
	subjects := []string{fmt.Sprintf("%s.>", subjectPrefix)}

	info, err := js.StreamInfo(stream)
	if err == nil {
		info.Config.Subjects = subjects
		_, err = js.UpdateStream(&info.Config)
		return err
	}

	if err == nats.ErrStreamNotFound {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  subjects,
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
		})
		return err
	}

	return err
}
