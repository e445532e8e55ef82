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

// PostgreSQLOutboxEventRepository handles outbox event persistence for PostgreSQL
type PostgreSQLOutboxEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEventRepository creates a new PostgreSQLOutboxEventRepository
func NewPostgreSQLOutboxEventRepository(db *sql.DB) *PostgreSQLOutboxEventRepository {
	return &PostgreSQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event. It participates in the caller's
// transaction when the context carries one.
func (r *PostgreSQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, event.ID, event.AggregateID, event.AggregateType,
		event.EventType, event.Payload, event.Status, event.Retries, event.LastError, event.ProcessedAt)

	return err
}

// CreateBatch inserts outbox events one by one in program order so that a
// single aggregate's events keep their relative emission order.
func (r *PostgreSQLOutboxEventRepository) CreateBatch(ctx context.Context, events []*domain.OutboxEvent) error {
	for _, event := range events {
		if err := r.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// GetPendingEvents retrieves pending events ordered by creation time with limit
func (r *PostgreSQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_id, aggregate_type, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent

		err := rows.Scan(&event.ID, &event.AggregateID, &event.AggregateType, &event.EventType,
			&event.Payload, &event.Status, &event.Retries, &event.LastError, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
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
// the race. The single conditional UPDATE is the only coordination primitive
// between processor instances.
func (r *PostgreSQLOutboxEventRepository) TryClaim(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, updated_at = NOW()
			  WHERE id = $2 AND status = $3`

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxEventStatusProcessing, id, domain.OutboxEventStatusPending)
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
func (r *PostgreSQLOutboxEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, processed_at = NOW(), updated_at = NOW()
			  WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusProcessed, id)

	return err
}

// MarkFailed records a delivery failure and increments the retry counter.
func (r *PostgreSQLOutboxEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, last_error = $2, retries = retries + 1, updated_at = NOW()
			  WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusFailed, errMsg, id)

	return err
}

// MarkFailedPermanently moves an event to failed with its retry counter pinned
// at the retry budget, so requeue cycles never pick it up again. Used for
// non-retryable failures such as undecodable payloads.
func (r *PostgreSQLOutboxEventRepository) MarkFailedPermanently(
	ctx context.Context,
	id uuid.UUID,
	errMsg string,
	maxRetries int,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, last_error = $2, retries = $3, updated_at = NOW()
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusFailed, errMsg, maxRetries, id)

	return err
}

// ResetForRetry requeues failed events that still have retry budget left and
// returns how many were moved back to pending.
func (r *PostgreSQLOutboxEventRepository) ResetForRetry(ctx context.Context, maxRetries int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, updated_at = NOW()
			  WHERE status = $2 AND retries < $3`

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxEventStatusPending, domain.OutboxEventStatusFailed, maxRetries)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteProcessedBefore deletes processed events whose processed_at is at or
// before the cutoff and returns the number of rows removed.
func (r *PostgreSQLOutboxEventRepository) DeleteProcessedBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_events
			  WHERE status = $1 AND processed_at <= $2`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetStats returns the count of entries per status.
func (r *PostgreSQLOutboxEventRepository) GetStats(ctx context.Context) (*domain.Stats, error) {
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
