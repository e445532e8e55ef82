// Package database provides database connection management and utilities.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/catalog/internal/errors"
)

// txKey is a context key type for storing the transaction context.
type txKey struct{}

// DefaultTxTimeout bounds a unit of work when no explicit timeout is configured.
const DefaultTxTimeout = 30 * time.Second

// Querier represents a database query executor (either *sql.DB or *sql.Tx).
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxContext identifies one unit of work. It is created when the transaction
// begins, marked inactive on both commit and rollback paths, and never reused.
type TxContext struct {
	// ID uniquely identifies this transaction for logging and tracing.
	ID uuid.UUID

	tx     *sql.Tx
	active bool
}

// Active reports whether the underlying transaction is still usable.
func (t *TxContext) Active() bool {
	return t != nil && t.active
}

// TxOptions configures a unit of work.
type TxOptions struct {
	// Isolation is the transaction isolation level (sql.LevelDefault when zero).
	Isolation sql.IsolationLevel
	// ReadOnly marks the transaction read-only where the driver supports it.
	ReadOnly bool
	// Timeout bounds the whole unit of work; DefaultTxTimeout when zero.
	// The work context is cancelled on expiry, which aborts in-flight queries
	// and releases any locks through the deferred rollback.
	Timeout time.Duration
}

// TxManager manages database transactions.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	WithTxOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error
}

// sqlTxManager implements TxManager for SQL databases.
type sqlTxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager for the given database.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

// WithTx executes the function within a database transaction using default options.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.WithTxOptions(ctx, TxOptions{}, fn)
}

// WithTxOptions executes the function within a database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// When the timeout expires first, the call fails with ErrTransactionTimeout.
func (m *sqlTxManager) WithTxOptions(
	ctx context.Context,
	opts TxOptions,
	fn func(ctx context.Context) error,
) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.Isolation,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return err
	}

	txCtx := &TxContext{
		ID:     uuid.Must(uuid.NewV7()),
		tx:     tx,
		active: true,
	}
	ctx = context.WithValue(ctx, txKey{}, txCtx)

	if err := fn(ctx); err != nil {
		txCtx.active = false
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return rbErr
		}
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.Wrap(apperrors.ErrTransactionTimeout, err.Error())
		}
		return err
	}

	txCtx.active = false
	if err := tx.Commit(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.Wrap(apperrors.ErrTransactionTimeout, err.Error())
		}
		return err
	}
	return nil
}

// GetTx retrieves the current transaction from context, or returns the DB connection.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if txCtx, ok := ctx.Value(txKey{}).(*TxContext); ok && txCtx.Active() {
		return txCtx.tx
	}
	return db
}

// CurrentTxContext returns the transaction context of the active unit of work,
// or nil when the context does not carry one.
func CurrentTxContext(ctx context.Context) *TxContext {
	if txCtx, ok := ctx.Value(txKey{}).(*TxContext); ok {
		return txCtx
	}
	return nil
}
