package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
	"github.com/allisson/catalog/internal/metrics"
)

// productUseCaseWithMetrics decorates ProductUseCase with metrics instrumentation.
type productUseCaseWithMetrics struct {
	next    ProductUseCase
	metrics metrics.BusinessMetrics
}

// NewProductUseCaseWithMetrics wraps a ProductUseCase with metrics recording.
func NewProductUseCaseWithMetrics(useCase ProductUseCase, m metrics.BusinessMetrics) ProductUseCase {
	return &productUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (p *productUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "catalog", operation, status)
	p.metrics.RecordDuration(ctx, "catalog", operation, time.Since(start), status)
}

// CreateProduct records metrics for product creation.
func (p *productUseCaseWithMetrics) CreateProduct(
	ctx context.Context,
	input CreateProductInput,
) (*catalogDomain.Product, error) {
	start := time.Now()
	product, err := p.next.CreateProduct(ctx, input)
	p.record(ctx, "product_create", start, err)
	return product, err
}

// RenameProduct records metrics for product renames.
func (p *productUseCaseWithMetrics) RenameProduct(
	ctx context.Context,
	id uuid.UUID,
	name string,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	start := time.Now()
	product, err := p.next.RenameProduct(ctx, id, name, metadata)
	p.record(ctx, "product_rename", start, err)
	return product, err
}

// ChangeProductPrice records metrics for price changes.
func (p *productUseCaseWithMetrics) ChangeProductPrice(
	ctx context.Context,
	id uuid.UUID,
	amount int64,
	currency string,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	start := time.Now()
	product, err := p.next.ChangeProductPrice(ctx, id, amount, currency, metadata)
	p.record(ctx, "product_change_price", start, err)
	return product, err
}

// AdjustProductStock records metrics for stock adjustments.
func (p *productUseCaseWithMetrics) AdjustProductStock(
	ctx context.Context,
	id uuid.UUID,
	delta int64,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	start := time.Now()
	product, err := p.next.AdjustProductStock(ctx, id, delta, metadata)
	p.record(ctx, "product_adjust_stock", start, err)
	return product, err
}

// DeleteProduct records metrics for product deletions.
func (p *productUseCaseWithMetrics) DeleteProduct(
	ctx context.Context,
	id uuid.UUID,
	metadata catalogDomain.EventMetadata,
) error {
	start := time.Now()
	err := p.next.DeleteProduct(ctx, id, metadata)
	p.record(ctx, "product_delete", start, err)
	return err
}

// GetProduct records metrics for product retrieval.
func (p *productUseCaseWithMetrics) GetProduct(
	ctx context.Context,
	id uuid.UUID,
) (*catalogDomain.Product, error) {
	start := time.Now()
	product, err := p.next.GetProduct(ctx, id)
	p.record(ctx, "product_get", start, err)
	return product, err
}

// GetProductBySKU records metrics for product retrieval by SKU.
func (p *productUseCaseWithMetrics) GetProductBySKU(
	ctx context.Context,
	sku string,
) (*catalogDomain.Product, error) {
	start := time.Now()
	product, err := p.next.GetProductBySKU(ctx, sku)
	p.record(ctx, "product_get_by_sku", start, err)
	return product, err
}
