// Package usecase defines the interfaces and implementations for catalog use cases.
// Use cases load aggregates, apply business methods and persist state and events
// atomically through the unit of work.
package usecase

import (
	"context"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
)

// ProductRepository defines the interface for product persistence operations.
// Save runs inside the caller's unit of work and appends the aggregate's
// pending events to the outbox in the same transaction.
type ProductRepository interface {
	Save(ctx context.Context, product *catalogDomain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*catalogDomain.Product, error)
}

// CreateProductInput holds the fields for creating a product.
type CreateProductInput struct {
	SKU           string
	Name          string
	PriceAmount   int64
	PriceCurrency string
	Metadata      catalogDomain.EventMetadata
}

// ProductUseCase defines the interface for product command handling. Commands
// that hit a concurrent write fail with errors.ErrConcurrency; the command is
// the retry unit.
type ProductUseCase interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*catalogDomain.Product, error)
	RenameProduct(
		ctx context.Context,
		id uuid.UUID,
		name string,
		metadata catalogDomain.EventMetadata,
	) (*catalogDomain.Product, error)
	ChangeProductPrice(
		ctx context.Context,
		id uuid.UUID,
		amount int64,
		currency string,
		metadata catalogDomain.EventMetadata,
	) (*catalogDomain.Product, error)
	AdjustProductStock(
		ctx context.Context,
		id uuid.UUID,
		delta int64,
		metadata catalogDomain.EventMetadata,
	) (*catalogDomain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, metadata catalogDomain.EventMetadata) error
	GetProduct(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*catalogDomain.Product, error)
}
