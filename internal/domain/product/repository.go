package product

import (
	"context"
)

// Repository is the product store. The three counter mutations are single
// atomic statements in the store; callers never read-modify-write counters.
// A transaction carried in ctx is joined when present.
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Product, error)

	// ListActiveByEventYear returns the active catalog of an event year, ordered by id.
	ListActiveByEventYear(ctx context.Context, eventYearID uint) ([]*Product, error)

	// Reserve adds quantity to reserved_count only if total - sold - reserved >= quantity
	// (always for unlimited products). Returns ErrInsufficientInventory when the
	// condition did not hold and ErrProductNotFound for an unknown id.
	Reserve(ctx context.Context, id uint, quantity int) (*Product, error)

	// Release subtracts quantity from reserved_count, floored at zero.
	Release(ctx context.Context, id uint, quantity int) (*Product, error)

	// ConfirmSale moves quantity from reserved to sold. Reserved is floored at
	// zero and sold is incremented unconditionally, so it is not idempotent.
	ConfirmSale(ctx context.Context, id uint, quantity int) (*Product, error)
}
