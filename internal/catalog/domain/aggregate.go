package domain

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate is the embeddable base for versioned aggregates. The version starts
// at 0 and is pre-incremented in memory each time a business method records an
// event; repositories reconstruct the persisted version from it during save.
type Aggregate struct {
	ID        uuid.UUID
	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	pendingEvents []Event
}

// recordEvent appends a not-yet-persisted event and advances the in-memory version.
func (a *Aggregate) recordEvent(event Event) {
	a.pendingEvents = append(a.pendingEvents, event)
	a.Version++
	a.UpdatedAt = event.OccurredAt
}

// PendingEvents returns the ordered list of events recorded since the last save.
func (a *Aggregate) PendingEvents() []Event {
	events := make([]Event, len(a.pendingEvents))
	copy(events, a.pendingEvents)
	return events
}

// HasPendingEvents reports whether any events await persistence.
func (a *Aggregate) HasPendingEvents() bool {
	return len(a.pendingEvents) > 0
}

// ClearPendingEvents drops the pending events. Callers invoke this only after
// the events were durably appended to the outbox in the same transaction as the
// state write.
func (a *Aggregate) ClearPendingEvents() {
	a.pendingEvents = nil
}
