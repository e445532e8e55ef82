// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/catalog/internal/database"
	"github.com/allisson/catalog/internal/outbox/domain"
)

// MySQLOutboxEventRepository handles outbox event persistence for MySQL
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event. It participates in the caller's
// transaction when the context carries one.
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`

	// Convert UUIDs to bytes for MySQL BINARY(16)
	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return err
	}
	aggregateIDBytes, err := event.AggregateID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, aggregateIDBytes, event.AggregateType,
		event.EventType, event.Payload, event.Status, event.Retries, event.LastError, event.ProcessedAt)

	return err
}

// CreateBatch inserts outbox events one by one in program order so that a
// single aggregate's events keep their relative emission order.
func (r *MySQLOutboxEventRepository) CreateBatch(ctx context.Context, events []*domain.OutboxEvent) error {
	for _, event := range events {
		if err := r.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// GetPendingEvents retrieves pending events ordered by creation time with limit
func (r *MySQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_id, aggregate_type, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		var idBytes, aggregateIDBytes []byte

		err := rows.Scan(&idBytes, &aggregateIDBytes, &event.AggregateType, &event.EventType,
			&event.Payload, &event.Status, &event.Retries, &event.LastError, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		// Convert bytes back to UUIDs
		if err := event.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, err
		}
		if err := event.AggregateID.UnmarshalBinary(aggregateIDBytes); err != nil {
			return nil, err
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// TryClaim atomically moves a pending event to processing. It returns whether
// this call performed the transition; a false result means another worker won
// the race.
func (r *MySQLOutboxEventRepository) TryClaim(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, updated_at = NOW(6)
			  WHERE id = ? AND status = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, err
	}

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxEventStatusProcessing, idBytes, domain.OutboxEventStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// MarkProcessed moves an event to the terminal processed status.
func (r *MySQLOutboxEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, processed_at = NOW(6), updated_at = NOW(6)
			  WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, domain.OutboxEventStatusProcessed, idBytes)

	return err
}

// MarkFailed records a delivery failure and increments the retry counter.
func (r *MySQLOutboxEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, last_error = ?, retries = retries + 1, updated_at = NOW(6)
			  WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, domain.OutboxEventStatusFailed, errMsg, idBytes)

	return err
}

// MarkFailedPermanently moves an event to failed with its retry counter pinned
// at the retry budget, so requeue cycles never pick it up again. Used for
// non-retryable failures such as undecodable payloads.
func (r *MySQLOutboxEventRepository) MarkFailedPermanently(
	ctx context.Context,
	id uuid.UUID,
	errMsg string,
	maxRetries int,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, last_error = ?, retries = ?, updated_at = NOW(6)
			  WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, domain.OutboxEventStatusFailed, errMsg, maxRetries, idBytes)

	return err
}

// ResetForRetry requeues failed events that still have retry budget left and
// returns how many were moved back to pending.
func (r *MySQLOutboxEventRepository) ResetForRetry(ctx context.Context, maxRetries int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, updated_at = NOW(6)
			  WHERE status = ? AND retries < ?`

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxEventStatusPending, domain.OutboxEventStatusFailed, maxRetries)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteProcessedBefore deletes processed events whose processed_at is at or
// before the cutoff and returns the number of rows removed.
func (r *MySQLOutboxEventRepository) DeleteProcessedBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_events
			  WHERE status = ? AND processed_at <= ?`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetStats returns the count of entries per status.
func (r *MySQLOutboxEventRepository) GetStats(ctx context.Context) (*domain.Stats, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM outbox_events GROUP BY status`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var stats domain.Stats
	for rows.Next() {
		var status domain.OutboxEventStatus
		var count int64

		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		switch status {
		case domain.OutboxEventStatusPending:
			stats.Pending = count
		case domain.OutboxEventStatusProcessing:
			stats.Processing = count
		case domain.OutboxEventStatusProcessed:
			stats.Processed = count
		case domain.OutboxEventStatusFailed:
			stats.Failed = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}
