// Package eventbus provides publishing of domain events to a message broker.
package eventbus

import (
	"context"

	"github.com/allisson/catalog/internal/outbox/domain"
)

// EventBus publishes outbox entries to downstream consumers. Delivery is
// at-least-once; consumers deduplicate by the event ID carried in the entry.
type EventBus interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
	Close() error
}
