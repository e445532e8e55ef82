package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
	"github.com/allisson/catalog/internal/database"
	apperrors "github.com/allisson/catalog/internal/errors"
	outboxDomain "github.com/allisson/catalog/internal/outbox/domain"
)

// OutboxEventAppender appends outbox entries inside the caller's transaction.
type OutboxEventAppender interface {
	CreateBatch(ctx context.Context, events []*outboxDomain.OutboxEvent) error
}

// PostgreSQLProductRepository handles product persistence for PostgreSQL.
// Save enforces optimistic concurrency and appends the aggregate's pending
// events to the outbox; it must run inside a unit of work so the state write
// and the event append commit or roll back together.
type PostgreSQLProductRepository struct {
	db     *sql.DB
	outbox OutboxEventAppender
}

// NewPostgreSQLProductRepository creates a new PostgreSQLProductRepository
func NewPostgreSQLProductRepository(db *sql.DB, outbox OutboxEventAppender) *PostgreSQLProductRepository {
	return &PostgreSQLProductRepository{
		db:     db,
		outbox: outbox,
	}
}

// Save persists the aggregate state and its pending events. The domain layer
// pre-increments the in-memory version on mutation, so the version the database
// is expected to hold is version-1. A conditional update matching zero rows
// means another writer advanced the aggregate first: the save fails with
// ErrConcurrency and no outbox rows are written.
func (r *PostgreSQLProductRepository) Save(ctx context.Context, product *catalogDomain.Product) error {
	querier := database.GetTx(ctx, r.db)

	var expectedVersion uint64
	if product.Version > 0 {
		expectedVersion = product.Version - 1
	}

	if expectedVersion == 0 {
		query := `INSERT INTO products (id, version, sku, name, price_amount, price_currency, stock_quantity, deleted_at, created_at, updated_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

		_, err := querier.ExecContext(ctx, query, product.ID, product.Version, product.SKU,
			product.Name, product.PriceAmount, product.PriceCurrency, product.StockQuantity,
			product.DeletedAt)
		if err != nil {
			return err
		}
	} else {
		query := `UPDATE products
				  SET version = version + 1, sku = $1, name = $2, price_amount = $3, price_currency = $4,
				      stock_quantity = $5, deleted_at = $6, updated_at = NOW()
				  WHERE id = $7 AND version = $8`

		result, err := querier.ExecContext(ctx, query, product.SKU, product.Name,
			product.PriceAmount, product.PriceCurrency, product.StockQuantity, product.DeletedAt,
			product.ID, expectedVersion)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.Wrapf(apperrors.ErrConcurrency,
				"product %s expected version %d", product.ID, expectedVersion)
		}
	}

	entries, err := outboxEventsFromDomain(product.PendingEvents())
	if err != nil {
		return err
	}

	return r.outbox.CreateBatch(ctx, entries)
}

// GetByID retrieves a product by id, excluding soft-deleted rows.
func (r *PostgreSQLProductRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, version, sku, name, price_amount, price_currency, stock_quantity, deleted_at, created_at, updated_at
			  FROM products
			  WHERE id = $1 AND deleted_at IS NULL`

	var product catalogDomain.Product
	err := querier.QueryRowContext(ctx, query, id).Scan(&product.ID, &product.Version,
		&product.SKU, &product.Name, &product.PriceAmount, &product.PriceCurrency,
		&product.StockQuantity, &product.DeletedAt, &product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "product %s", id)
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// GetBySKU retrieves a product by its stock keeping unit, excluding soft-deleted rows.
func (r *PostgreSQLProductRepository) GetBySKU(
	ctx context.Context,
	sku string,
) (*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, version, sku, name, price_amount, price_currency, stock_quantity, deleted_at, created_at, updated_at
			  FROM products
			  WHERE sku = $1 AND deleted_at IS NULL`

	var product catalogDomain.Product
	err := querier.QueryRowContext(ctx, query, sku).Scan(&product.ID, &product.Version,
		&product.SKU, &product.Name, &product.PriceAmount, &product.PriceCurrency,
		&product.StockQuantity, &product.DeletedAt, &product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "product sku %s", sku)
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}
