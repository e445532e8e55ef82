// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventStatus represents the status of an outbox event
type OutboxEventStatus string

const (
	OutboxEventStatusPending    OutboxEventStatus = "pending"
	OutboxEventStatusProcessing OutboxEventStatus = "processing"
	OutboxEventStatusProcessed  OutboxEventStatus = "processed"
	OutboxEventStatusFailed     OutboxEventStatus = "failed"
)

// OutboxEvent is the persisted projection of a domain event plus delivery
// bookkeeping. Rows move pending -> processing -> processed|failed; failed rows
// return to pending only while the retry budget lasts; processed rows are
// immutable until the retention cleanup deletes them.
type OutboxEvent struct {
	// ID equals the domain event id, which consumers use for deduplication.
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Payload       string
	Status        OutboxEventStatus
	Retries       int
	LastError     *string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEvent builds a pending outbox event for a domain event.
func NewOutboxEvent(
	id uuid.UUID,
	aggregateID uuid.UUID,
	aggregateType string,
	eventType string,
	payload string,
) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		Status:        OutboxEventStatusPending,
		Retries:       0,
	}
}

// Stats holds per-status entry counts for observability.
type Stats struct {
	Pending    int64
	Processing int64
	Processed  int64
	Failed     int64
}

// Total returns the number of outbox entries across all statuses.
func (s Stats) Total() int64 {
	return s.Pending + s.Processing + s.Processed + s.Failed
}
