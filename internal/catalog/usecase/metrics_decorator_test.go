package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/allisson/catalog/internal/catalog/domain"
	"github.com/allisson/catalog/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// mockProductUseCase is a mock implementation of ProductUseCase for decorator tests.
type mockProductUseCase struct {
	mock.Mock
}

func (m *mockProductUseCase) CreateProduct(
	ctx context.Context,
	input CreateProductInput,
) (*catalogDomain.Product, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func (m *mockProductUseCase) RenameProduct(
	ctx context.Context,
	id uuid.UUID,
	name string,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	args := m.Called(ctx, id, name, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func (m *mockProductUseCase) ChangeProductPrice(
	ctx context.Context,
	id uuid.UUID,
	amount int64,
	currency string,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	args := m.Called(ctx, id, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func (m *mockProductUseCase) AdjustProductStock(
	ctx context.Context,
	id uuid.UUID,
	delta int64,
	metadata catalogDomain.EventMetadata,
) (*catalogDomain.Product, error) {
	args := m.Called(ctx, id, delta, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func (m *mockProductUseCase) DeleteProduct(
	ctx context.Context,
	id uuid.UUID,
	metadata catalogDomain.EventMetadata,
) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

func (m *mockProductUseCase) GetProduct(
	ctx context.Context,
	id uuid.UUID,
) (*catalogDomain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func (m *mockProductUseCase) GetProductBySKU(
	ctx context.Context,
	sku string,
) (*catalogDomain.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Product), args.Error(1)
}

func TestProductUseCaseWithMetrics_Success(t *testing.T) {
	next := &mockProductUseCase{}
	m := &mockBusinessMetrics{}
	decorated := NewProductUseCaseWithMetrics(next, m)
	ctx := context.Background()

	product := storedProduct(t)
	next.On("GetProduct", ctx, product.ID).Return(product, nil)
	m.On("RecordOperation", ctx, "catalog", "product_get", "success").Return()
	m.On("RecordDuration", ctx, "catalog", "product_get", mock.Anything, "success").Return()

	found, err := decorated.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)

	m.AssertExpectations(t)
}

func TestProductUseCaseWithMetrics_Error(t *testing.T) {
	next := &mockProductUseCase{}
	m := &mockBusinessMetrics{}
	decorated := NewProductUseCaseWithMetrics(next, m)
	ctx := context.Background()

	input := CreateProductInput{SKU: "TSHIRT-RED-M"}
	next.On("CreateProduct", ctx, input).Return(nil, assert.AnError)
	m.On("RecordOperation", ctx, "catalog", "product_create", "error").Return()
	m.On("RecordDuration", ctx, "catalog", "product_create", mock.Anything, "error").Return()

	_, err := decorated.CreateProduct(ctx, input)
	assert.ErrorIs(t, err, assert.AnError)

	m.AssertExpectations(t)
}
