package order

import (
	"context"
)

// Repository is the order store. A transaction carried in ctx is joined when present.
type Repository interface {
	// Create persists the order with its items and assigns ids.
	Create(ctx context.Context, order *Order) error

	// FindByID loads the order with items and payments.
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindPaymentByIntentID returns ErrPaymentNotFound when no payment carries the intent id.
	FindPaymentByIntentID(ctx context.Context, intentID string) (*Payment, error)

	// CreatePayment returns ErrDuplicatePayment when the intent id is already recorded.
	CreatePayment(ctx context.Context, payment *Payment) error

	// TransitionStatus sets the status to `to` only if it is currently one of
	// `from`, in one conditional update. It reports whether the row changed.
	TransitionStatus(ctx context.Context, id uint, from []Status, to Status) (bool, error)

	// SumCompletedPayments totals the completed payment amounts of an order.
	SumCompletedPayments(ctx context.Context, orderID uint) (int64, error)

	// PurchasedQuantities sums item quantities per product over the
	// organization's non-abandoned orders in the event year.
	PurchasedQuantities(ctx context.Context, organizationID, eventYearID uint) (map[uint]int, error)

	// PurchasedTeamRegistrations sums team_registration item quantities over
	// the organization's non-abandoned orders in the event year.
	PurchasedTeamRegistrations(ctx context.Context, organizationID, eventYearID uint) (int, error)
}
