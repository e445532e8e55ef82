package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/allisson/catalog/internal/outbox/domain"
)

// MemoryEventBus keeps published events in memory. It backs tests and local
// runs where no broker is available.
type MemoryEventBus struct {
	mu        sync.Mutex
	published []*domain.OutboxEvent
	logger    *slog.Logger
}

// NewMemoryEventBus creates a new MemoryEventBus.
func NewMemoryEventBus(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		logger: logger,
	}
}

// Publish records the event in memory.
func (b *MemoryEventBus) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.published = append(b.published, event)
	b.mu.Unlock()

	b.logger.Debug(
		"event published",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
	)

	return nil
}

// Published returns a copy of the events published so far.
func (b *MemoryEventBus) Published() []*domain.OutboxEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*domain.OutboxEvent, len(b.published))
	copy(out, b.published)
	return out
}

// Close is a no-op.
func (b *MemoryEventBus) Close() error {
	return nil
}
