package order

import (
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

var (
	ErrOrderNotFound = apperrors.New(apperrors.ErrCodeOrderNotFound, "Order not found")

	ErrPaymentNotFound = apperrors.New(apperrors.ErrCodeNotFound, "Payment not found")

	// ErrDuplicatePayment means a payment with the same intent id is already recorded.
	ErrDuplicatePayment = apperrors.New(apperrors.ErrCodeDuplicateEntry, "Payment already recorded")

	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "Order status does not allow this operation")

	ErrInvalidOrderItems = apperrors.New(apperrors.ErrCodeInvalidParams, "Order must contain at least one item")
)
