package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/catalog/internal/errors"
)

func TestNewProduct(t *testing.T) {
	metadata := EventMetadata{CorrelationID: "corr-1", UserID: "user-1"}

	product, err := NewProduct("TSHIRT-RED-M", "Red T-Shirt (M)", 1999, "USD", metadata)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, product.ID)
	assert.Equal(t, uint64(1), product.Version)
	assert.Equal(t, "TSHIRT-RED-M", product.SKU)
	assert.Equal(t, int64(1999), product.PriceAmount)
	assert.Equal(t, "USD", product.PriceCurrency)
	assert.Nil(t, product.DeletedAt)

	events := product.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeProductCreated, events[0].Type)
	assert.Equal(t, AggregateTypeProduct, events[0].AggregateType)
	assert.Equal(t, product.ID, events[0].AggregateID)
	assert.Equal(t, metadata, events[0].Metadata)

	var payload ProductCreatedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "TSHIRT-RED-M", payload.SKU)
	assert.Equal(t, int64(1999), payload.PriceAmount)
}

func TestNewProduct_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		sku      string
		prodName string
		amount   int64
		currency string
	}{
		{name: "empty sku", sku: "", prodName: "Name", amount: 100, currency: "USD"},
		{name: "lowercase sku", sku: "tshirt", prodName: "Name", amount: 100, currency: "USD"},
		{name: "empty name", sku: "TSHIRT", prodName: "", amount: 100, currency: "USD"},
		{name: "zero amount", sku: "TSHIRT", prodName: "Name", amount: 0, currency: "USD"},
		{name: "negative amount", sku: "TSHIRT", prodName: "Name", amount: -1, currency: "USD"},
		{name: "bad currency", sku: "TSHIRT", prodName: "Name", amount: 100, currency: "dollars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := NewProduct(tt.sku, tt.prodName, tt.amount, tt.currency, EventMetadata{})
			assert.Nil(t, product)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestProduct_Rename(t *testing.T) {
	product, err := NewProduct("TSHIRT", "Old Name", 100, "USD", EventMetadata{})
	require.NoError(t, err)
	product.ClearPendingEvents()

	err = product.Rename("New Name", EventMetadata{})
	require.NoError(t, err)

	assert.Equal(t, "New Name", product.Name)
	assert.Equal(t, uint64(2), product.Version)

	events := product.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeProductRenamed, events[0].Type)

	var payload ProductRenamedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "Old Name", payload.OldName)
	assert.Equal(t, "New Name", payload.NewName)
}

func TestProduct_Rename_Invalid(t *testing.T) {
	product, err := NewProduct("TSHIRT", "Name", 100, "USD", EventMetadata{})
	require.NoError(t, err)

	err = product.Rename("", EventMetadata{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, "Name", product.Name)
	assert.Equal(t, uint64(1), product.Version)
}

func TestProduct_ChangePrice(t *testing.T) {
	product, err := NewProduct("TSHIRT", "Name", 100, "USD", EventMetadata{})
	require.NoError(t, err)
	product.ClearPendingEvents()

	err = product.ChangePrice(2500, "EUR", EventMetadata{})
	require.NoError(t, err)

	assert.Equal(t, int64(2500), product.PriceAmount)
	assert.Equal(t, "EUR", product.PriceCurrency)
	assert.Equal(t, uint64(2), product.Version)

	events := product.PendingEvents()
	require.Len(t, events, 1)

	var payload ProductPriceChangedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, int64(100), payload.OldAmount)
	assert.Equal(t, int64(2500), payload.NewAmount)
	assert.Equal(t, "USD", payload.OldCurrency)
	assert.Equal(t, "EUR", payload.NewCurrency)
}

func TestProduct_AdjustStock(t *testing.T) {
	product, err := NewProduct("TSHIRT", "Name", 100, "USD", EventMetadata{})
	require.NoError(t, err)
	product.ClearPendingEvents()

	require.NoError(t, product.AdjustStock(10, EventMetadata{}))
	assert.Equal(t, int64(10), product.StockQuantity)

	require.NoError(t, product.AdjustStock(-4, EventMetadata{}))
	assert.Equal(t, int64(6), product.StockQuantity)
	assert.Equal(t, uint64(3), product.Version)

	// Going below zero is rejected and leaves state untouched.
	err = product.AdjustStock(-7, EventMetadata{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, int64(6), product.StockQuantity)
	assert.Equal(t, uint64(3), product.Version)
}

func TestProduct_MarkDeleted(t *testing.T) {
	product, err := NewProduct("TSHIRT", "Name", 100, "USD", EventMetadata{})
	require.NoError(t, err)
	product.ClearPendingEvents()

	require.NoError(t, product.MarkDeleted(EventMetadata{}))

	require.NotNil(t, product.DeletedAt)
	assert.Equal(t, uint64(2), product.Version)

	events := product.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeProductDeleted, events[0].Type)
}

func TestAggregate_PendingEvents(t *testing.T) {
	product, err := NewProduct("TSHIRT", "Name", 100, "USD", EventMetadata{})
	require.NoError(t, err)

	assert.True(t, product.HasPendingEvents())

	// Events preserve emission order.
	require.NoError(t, product.Rename("Renamed", EventMetadata{}))
	require.NoError(t, product.AdjustStock(1, EventMetadata{}))

	events := product.PendingEvents()
	require.Len(t, events, 3)
	assert.Equal(t, EventTypeProductCreated, events[0].Type)
	assert.Equal(t, EventTypeProductRenamed, events[1].Type)
	assert.Equal(t, EventTypeProductStockAdjusted, events[2].Type)

	// The returned slice is a copy.
	events[0].Type = "mutated"
	assert.Equal(t, EventTypeProductCreated, product.PendingEvents()[0].Type)

	product.ClearPendingEvents()
	assert.False(t, product.HasPendingEvents())
	assert.Empty(t, product.PendingEvents())
}
