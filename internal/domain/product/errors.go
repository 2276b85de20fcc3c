package product

import (
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

var (
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "Product not found")

	// ErrInsufficientInventory is returned when a conditional reserve matched no row.
	ErrInsufficientInventory = apperrors.New(apperrors.ErrCodeInsufficientInventory, "Insufficient inventory available")

	ErrProductInactive = apperrors.New(apperrors.ErrCodeProductInactive, "Product is not available for purchase")

	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "Quantity must be greater than 0")
)
