package domain

import "github.com/google/uuid"

// newAggregateID generates a time-ordered aggregate identifier.
func newAggregateID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
