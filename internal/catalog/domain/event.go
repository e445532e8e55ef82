// Package domain defines the catalog aggregates and the domain events they emit.
// Aggregates are consistency boundaries: business methods mutate in-memory state,
// append domain events and advance the in-memory version; infrastructure never
// mutates an aggregate directly.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/catalog/internal/errors"
)

// EventMetadata carries optional tracing information attached to a domain event.
type EventMetadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	CausationID   string `json:"causation_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

// Event is an immutable record of something that happened to an aggregate.
// Events are created only by aggregate business methods and serialized to the
// outbox as an opaque payload blob.
type Event struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	Type          string
	OccurredAt    time.Time
	Payload       json.RawMessage
	Metadata      EventMetadata
}

// NewEvent builds a domain event with a fresh id and the payload encoded as JSON.
func NewEvent(
	aggregateID uuid.UUID,
	aggregateType string,
	eventType string,
	payload any,
	metadata EventMetadata,
) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, apperrors.Wrap(apperrors.ErrSerialization, err.Error())
	}

	return Event{
		ID:            uuid.Must(uuid.NewV7()),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Type:          eventType,
		OccurredAt:    time.Now().UTC(),
		Payload:       data,
		Metadata:      metadata,
	}, nil
}
