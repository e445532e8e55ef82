package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
	"github.com/allisson/catalog/internal/database"
)

// productUseCase implements the ProductUseCase interface.
type productUseCase struct {
	txManager   database.TxManager
	productRepo ProductRepository
	logger      *slog.Logger
}

// NewProductUseCase creates a new ProductUseCase.
func NewProductUseCase(
	txManager database.TxManager,
	productRepo ProductRepository,
	logger *slog.Logger,
) ProductUseCase {
	return &productUseCase{
		txManager:   txManager,
		productRepo: productRepo,
		logger:      logger,
	}
}

// CreateProduct creates a new product aggregate and persists it together with
// its creation event.
func (p *productUseCase) CreateProduct(
	ctx context.Context,
	input CreateProductInput,
) (*catalogDomain.Product, error) {
	product, err := catalogDomain.NewProduct(
		input.SKU,
		input.Name,
		input.PriceAmount,
		input.PriceCurrency,
		input.Metadata,
	)
	if err != nil {
		return nil, err
	}

	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return p.productRepo.Save(txCtx, product)
	})
	if err != nil {
		return nil, err
	}

	// Pending events are cleared only after the transaction committed.
	product.ClearPendingEvents()

	p.logger.Info("product created",
		slog.String("product_id", product.ID.String()),
		slog.String("sku", product.SKU),
	)

	return product, nil
}

// RenameProduct renames a product.
func (p *productUseCase) RenameProduct(
	ctx context.Context,
	id uuid.UUID,
	name string,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	return p.mutate(ctx, id, func(product *catalogDomain.Product) error {
		return product.Rename(name, metadata)
	})
}

// ChangeProductPrice changes a product's price.
func (p *productUseCase) ChangeProductPrice(
	ctx context.Context,
	id uuid.UUID,
	amount int64,
	currency string,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	return p.mutate(ctx, id, func(product *catalogDomain.Product) error {
		return product.ChangePrice(amount, currency, metadata)
	})
}

// AdjustProductStock adjusts a product's stock quantity by a signed delta.
func (p *productUseCase) AdjustProductStock(
	ctx context.Context,
	id uuid.UUID,
	delta int64,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	return p.mutate(ctx, id, func(product *catalogDomain.Product) error {
		return product.AdjustStock(delta, metadata)
	})
}

// DeleteProduct soft deletes a product.
func (p *productUseCase) DeleteProduct(
	ctx context.Context,
	id uuid.UUID,
	metadata catalogDomain.EventMetadata,
) error {
	_, err := p.mutate(ctx, id, func(product *catalogDomain.Product) error {
		return product.MarkDeleted(metadata)
	})
	return err
}

// GetProduct retrieves a product by its ID.
func (p *productUseCase) GetProduct(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	return p.productRepo.GetByID(ctx, id)
}

// GetProductBySKU retrieves a product by its SKU.
func (p *productUseCase) GetProductBySKU(ctx context.Context, sku string) (*catalogDomain.Product, error) {
	return p.productRepo.GetBySKU(ctx, sku)
}

// mutate loads a product, applies the mutation and saves it inside a unit of
// work. A concurrent write surfaces as errors.ErrConcurrency and the load,
// mutate, save sequence is the caller's retry unit.
func (p *productUseCase) mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(product *catalogDomain.Product) error,
) (*catalogDomain.Product, error) {
	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(product); err != nil {
		return nil, err
	}

	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return p.productRepo.Save(txCtx, product)
	})
	if err != nil {
		return nil, err
	}

	product.ClearPendingEvents()

	return product, nil
}
