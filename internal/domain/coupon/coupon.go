// Package coupon is the validate-and-apply side of discount codes.
// Coupons are managed elsewhere; checkout only reads them and the payment
// flow increments their usage.
package coupon

import (
	"context"
	"time"

	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// Coupon is a fixed-amount discount code with an optional expiry and usage limit.
type Coupon struct {
	ID        uint
	Code      string
	Amount    int64 // fixed discount in cents
	MaxUses   *int
	UsedCount int
	Active    bool
	ExpiresAt *time.Time
}

var (
	ErrCouponNotFound = apperrors.New(apperrors.ErrCodeNotFound, "Coupon not found")
	ErrCouponInvalid  = apperrors.New(apperrors.ErrCodeBusinessError, "Coupon is not valid")
)

// Validate checks the coupon can still be applied at now.
func (c *Coupon) Validate(now time.Time) error {
	if !c.Active {
		return ErrCouponInvalid
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrCouponInvalid
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return ErrCouponInvalid
	}
	return nil
}

// Discount is the amount taken off subtotal.
func (c *Coupon) Discount(subtotal int64) int64 {
	if c.Amount > subtotal {
		return subtotal
	}
	return c.Amount
}

// Repository persists coupons.
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Coupon, error)
	IncrementUsage(ctx context.Context, id uint) error
}
