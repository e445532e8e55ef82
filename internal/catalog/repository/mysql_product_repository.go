package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
	"github.com/allisson/catalog/internal/database"
	apperrors "github.com/allisson/catalog/internal/errors"
)

// MySQLProductRepository handles product persistence for MySQL.
// Save semantics match PostgreSQLProductRepository: optimistic concurrency plus
// outbox append inside the caller's unit of work.
type MySQLProductRepository struct {
	db     *sql.DB
	outbox OutboxEventAppender
}

// NewMySQLProductRepository creates a new MySQLProductRepository
func NewMySQLProductRepository(db *sql.DB, outbox OutboxEventAppender) *MySQLProductRepository {
	return &MySQLProductRepository{
		db:     db,
		outbox: outbox,
	}
}

// Save persists the aggregate state and its pending events under optimistic
// concurrency control. A conditional update matching zero rows fails with
// ErrConcurrency and writes no outbox rows.
func (r *MySQLProductRepository) Save(ctx context.Context, product *catalogDomain.Product) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := product.ID.MarshalBinary()
	if err != nil {
		return err
	}

	var expectedVersion uint64
	if product.Version > 0 {
		expectedVersion = product.Version - 1
	}

	if expectedVersion == 0 {
		query := `INSERT INTO products (id, version, sku, name, price_amount, price_currency, stock_quantity, deleted_at, created_at, updated_at)
				  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`

		_, err := querier.ExecContext(ctx, query, idBytes, product.Version, product.SKU,
			product.Name, product.PriceAmount, product.PriceCurrency, product.StockQuantity,
			product.DeletedAt)
		if err != nil {
			return err
		}
	} else {
		query := `UPDATE products
				  SET version = version + 1, sku = ?, name = ?, price_amount = ?, price_currency = ?,
				      stock_quantity = ?, deleted_at = ?, updated_at = NOW(6)
				  WHERE id = ? AND version = ?`

		result, err := querier.ExecContext(ctx, query, product.SKU, product.Name,
			product.PriceAmount, product.PriceCurrency, product.StockQuantity, product.DeletedAt,
			idBytes, expectedVersion)
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
func (r *MySQLProductRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, version, sku, name, price_amount, price_currency, stock_quantity, deleted_at, created_at, updated_at
			  FROM products
			  WHERE id = ? AND deleted_at IS NULL`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var product catalogDomain.Product
	var rowID []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(&rowID, &product.Version,
		&product.SKU, &product.Name, &product.PriceAmount, &product.PriceCurrency,
		&product.StockQuantity, &product.DeletedAt, &product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "product %s", id)
	}
	if err != nil {
		return nil, err
	}

	if err := product.ID.UnmarshalBinary(rowID); err != nil {
		return nil, err
	}

	return &product, nil
}

// GetBySKU retrieves a product by its stock keeping unit, excluding soft-deleted rows.
func (r *MySQLProductRepository) GetBySKU(
	ctx context.Context,
	sku string,
) (*catalogDomain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, version, sku, name, price_amount, price_currency, stock_quantity, deleted_at, created_at, updated_at
			  FROM products
			  WHERE sku = ? AND deleted_at IS NULL`

	var product catalogDomain.Product
	var rowID []byte
	err := querier.QueryRowContext(ctx, query, sku).Scan(&rowID, &product.Version,
		&product.SKU, &product.Name, &product.PriceAmount, &product.PriceCurrency,
		&product.StockQuantity, &product.DeletedAt, &product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "product sku %s", sku)
	}
	if err != nil {
		return nil, err
	}

	if err := product.ID.UnmarshalBinary(rowID); err != nil {
		return nil, err
	}

	return &product, nil
}
