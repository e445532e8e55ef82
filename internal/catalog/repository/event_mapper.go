// Package repository provides data persistence implementations for catalog aggregates.
package repository

import (
	"encoding/json"
	"time"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
	apperrors "github.com/allisson/catalog/internal/errors"
	outboxDomain "github.com/allisson/catalog/internal/outbox/domain"
)

// eventEnvelope is the wire shape stored in the outbox payload column. It keeps
// the event payload opaque and carries the tracing metadata next to it.
type eventEnvelope struct {
	OccurredAt time.Time                   `json:"occurred_at"`
	Payload    json.RawMessage             `json:"payload"`
	Metadata   catalogDomain.EventMetadata `json:"metadata"`
}

// outboxEventsFromDomain maps pending domain events to outbox entries,
// preserving emission order.
func outboxEventsFromDomain(events []catalogDomain.Event) ([]*outboxDomain.OutboxEvent, error) {
	entries := make([]*outboxDomain.OutboxEvent, 0, len(events))

	for _, event := range events {
		data, err := json.Marshal(eventEnvelope{
			OccurredAt: event.OccurredAt,
			Payload:    event.Payload,
			Metadata:   event.Metadata,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSerialization, err.Error())
		}

		entries = append(entries, outboxDomain.NewOutboxEvent(
			event.ID,
			event.AggregateID,
			event.AggregateType,
			event.Type,
			string(data),
		))
	}

	return entries, nil
}
