package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	appvalidation "github.com/allisson/catalog/internal/validation"
)

// AggregateTypeProduct identifies product aggregates in events and outbox rows.
const AggregateTypeProduct = "product"

// Product event types.
const (
	EventTypeProductCreated       = "product.created"
	EventTypeProductRenamed       = "product.renamed"
	EventTypeProductPriceChanged  = "product.price_changed"
	EventTypeProductStockAdjusted = "product.stock_adjusted"
	EventTypeProductDeleted       = "product.deleted"
)

// Product is a catalog item. Prices are stored as minor units (cents) with an
// ISO 4217 currency code.
type Product struct {
	Aggregate

	SKU           string
	Name          string
	PriceAmount   int64
	PriceCurrency string
	StockQuantity int64
	DeletedAt     *time.Time
}

// ProductCreatedPayload is the payload of a product.created event.
type ProductCreatedPayload struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	PriceAmount   int64  `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
}

// ProductRenamedPayload is the payload of a product.renamed event.
type ProductRenamedPayload struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// ProductPriceChangedPayload is the payload of a product.price_changed event.
type ProductPriceChangedPayload struct {
	OldAmount   int64  `json:"old_amount"`
	NewAmount   int64  `json:"new_amount"`
	OldCurrency string `json:"old_currency"`
	NewCurrency string `json:"new_currency"`
}

// ProductStockAdjustedPayload is the payload of a product.stock_adjusted event.
type ProductStockAdjustedPayload struct {
	Delta    int64 `json:"delta"`
	Quantity int64 `json:"quantity"`
}

// ProductDeletedPayload is the payload of a product.deleted event.
type ProductDeletedPayload struct {
	SKU string `json:"sku"`
}

// NewProduct creates a product aggregate and records the product.created event.
// The returned aggregate has version 1 and one pending event; nothing is
// persisted until the repository saves it.
func NewProduct(
	sku string,
	name string,
	priceAmount int64,
	priceCurrency string,
	metadata EventMetadata,
) (*Product, error) {
	if err := validateProductInput(sku, name, priceAmount, priceCurrency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &Product{
		SKU:           sku,
		Name:          name,
		PriceAmount:   priceAmount,
		PriceCurrency: priceCurrency,
	}
	product.ID = newAggregateID()
	product.CreatedAt = now
	product.UpdatedAt = now

	event, err := NewEvent(product.ID, AggregateTypeProduct, EventTypeProductCreated, ProductCreatedPayload{
		SKU:           sku,
		Name:          name,
		PriceAmount:   priceAmount,
		PriceCurrency: priceCurrency,
	}, metadata)
	if err != nil {
		return nil, err
	}
	product.recordEvent(event)

	return product, nil
}

// Rename changes the product name and records a product.renamed event.
func (p *Product) Rename(name string, metadata EventMetadata) error {
	if err := appvalidation.WrapValidationError(
		validation.Validate(name, validation.Required, validation.Length(1, 255)),
	); err != nil {
		return err
	}

	event, err := NewEvent(p.ID, AggregateTypeProduct, EventTypeProductRenamed, ProductRenamedPayload{
		OldName: p.Name,
		NewName: name,
	}, metadata)
	if err != nil {
		return err
	}

	p.Name = name
	p.recordEvent(event)
	return nil
}

// ChangePrice sets a new price and records a product.price_changed event.
func (p *Product) ChangePrice(amount int64, currency string, metadata EventMetadata) error {
	if err := appvalidation.WrapValidationError(validation.Errors{
		"price_amount":   appvalidation.PositiveAmount{}.Validate(amount),
		"price_currency": validation.Validate(currency, validation.Required, appvalidation.CurrencyCode),
	}.Filter()); err != nil {
		return err
	}

	event, err := NewEvent(p.ID, AggregateTypeProduct, EventTypeProductPriceChanged, ProductPriceChangedPayload{
		OldAmount:   p.PriceAmount,
		NewAmount:   amount,
		OldCurrency: p.PriceCurrency,
		NewCurrency: currency,
	}, metadata)
	if err != nil {
		return err
	}

	p.PriceAmount = amount
	p.PriceCurrency = currency
	p.recordEvent(event)
	return nil
}

// AdjustStock applies a signed delta to the stock quantity and records a
// product.stock_adjusted event. The resulting quantity may not be negative.
func (p *Product) AdjustStock(delta int64, metadata EventMetadata) error {
	quantity := p.StockQuantity + delta
	if quantity < 0 {
		return appvalidation.WrapValidationError(
			validation.NewError("validation_stock_negative", "stock quantity may not become negative"),
		)
	}

	event, err := NewEvent(p.ID, AggregateTypeProduct, EventTypeProductStockAdjusted, ProductStockAdjustedPayload{
		Delta:    delta,
		Quantity: quantity,
	}, metadata)
	if err != nil {
		return err
	}

	p.StockQuantity = quantity
	p.recordEvent(event)
	return nil
}

// MarkDeleted soft-deletes the product and records a product.deleted event.
func (p *Product) MarkDeleted(metadata EventMetadata) error {
	event, err := NewEvent(p.ID, AggregateTypeProduct, EventTypeProductDeleted, ProductDeletedPayload{
		SKU: p.SKU,
	}, metadata)
	if err != nil {
		return err
	}

	now := event.OccurredAt
	p.DeletedAt = &now
	p.recordEvent(event)
	return nil
}

// validateProductInput validates the creation inputs with domain rules.
func validateProductInput(sku, name string, priceAmount int64, priceCurrency string) error {
	return appvalidation.WrapValidationError(validation.Errors{
		"sku":            validation.Validate(sku, validation.Required, appvalidation.SKU),
		"name":           validation.Validate(name, validation.Required, validation.Length(1, 255)),
		"price_amount":   appvalidation.PositiveAmount{}.Validate(priceAmount),
		"price_currency": validation.Validate(priceCurrency, validation.Required, appvalidation.CurrencyCode),
	}.Filter())
}
