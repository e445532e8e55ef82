// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/catalog/internal/errors"
)

var (
	// skuRegex matches stock keeping units: uppercase alphanumeric segments
	// separated by dashes (e.g., "TSHIRT-RED-M").
	skuRegex = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)*$`)

	// currencyRegex matches ISO 4217 alphabetic currency codes (e.g., "USD").
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// SKU validates stock keeping unit format.
var SKU = validation.NewStringRule(isSKU, "must be a valid SKU (uppercase alphanumeric segments separated by dashes)")

// CurrencyCode validates ISO 4217 alphabetic currency codes.
var CurrencyCode = validation.NewStringRule(isCurrencyCode, "must be a valid ISO 4217 currency code")

func isSKU(s string) bool {
	return skuRegex.MatchString(s)
}

func isCurrencyCode(s string) bool {
	return currencyRegex.MatchString(s)
}

// PositiveAmount validates that a monetary amount in minor units is positive.
type PositiveAmount struct{}

// Validate checks that the value is an int64 greater than zero.
func (PositiveAmount) Validate(value interface{}) error {
	amount, ok := value.(int64)
	if !ok {
		return validation.NewError("validation_amount_type", "amount must be an integer of minor units")
	}
	if amount <= 0 {
		return validation.NewError("validation_amount_positive", "amount must be greater than zero")
	}
	return nil
}
