// Package service provides the storefront business logic: registration,
// API key authentication, the product catalog and the checkout engine.
package service

import (
	"errors"
	"fmt"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxPrice is the first value that no longer fits a NUMERIC(18,2) column.
var maxPrice = decimal.New(1, 16)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := web.NewValidator()
	v.RegisterStructValidation(productCreateRules, ProductCreateDto{})
	v.RegisterStructValidation(productPatchRules, ProductPatchDto{})
	return v
}

// priceFits compares in decimal after rounding, as the price is stored.
func priceFits(price decimal.Decimal) bool {
	return price.Round(priceScale).LessThan(maxPrice)
}

func productCreateRules(sl validator.StructLevel) {
	dto := sl.Current().Interface().(ProductCreateDto)
	if !priceFits(dto.Price) {
		sl.ReportError(dto.Price, "Price", "Price", "max", "")
	}
}

func productPatchRules(sl validator.StructLevel) {
	dto := sl.Current().Interface().(ProductPatchDto)
	if dto.Price != nil && !priceFits(*dto.Price) {
		sl.ReportError(*dto.Price, "Price", "Price", "max", "")
	}
}

// validateStruct wraps validation failures in ErrInvalidInput, keeping the
// validator.ValidationErrors reachable through errors.As.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", sferrors.ErrInvalidInput, verrs)
	}
	return fmt.Errorf("%w: %v", sferrors.ErrInvalidInput, err)
}
