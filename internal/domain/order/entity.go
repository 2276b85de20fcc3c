package order

import (
	"time"
)

// Status of an order. Stored as its string value.
type Status string

const (
	StatusPending           Status = "pending"
	StatusPaymentProcessing Status = "payment_processing"
	StatusDepositPaid       Status = "deposit_paid"
	StatusFullyPaid         Status = "fully_paid"
	StatusConfirmed         Status = "confirmed"
	StatusCancelled         Status = "cancelled"
)

// ConfirmableStatuses are the statuses a first payment may settle.
var ConfirmableStatuses = []Status{StatusPending, StatusPaymentProcessing}

// PaymentStatus of one OrderPayment row.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Order is the aggregate root of a checkout. Items are fixed at creation.
type Order struct {
	ID             uint
	OrderNo        string
	OrganizationID uint
	EventYearID    uint
	Status         Status
	Total          int64 // cents, after coupon
	Discount       int64
	CouponID       *uint
	Items          []Item
	Payments       []Payment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is one order line. UnitPrice is the price at checkout.
type Item struct {
	ID        uint
	OrderID   uint
	ProductID uint
	Quantity  int
	UnitPrice int64
}

// Payment is one processor payment recorded against an order.
// StripePaymentIntentID is unique across all payments.
type Payment struct {
	ID                    uint
	OrderID               uint
	StripePaymentIntentID string
	Status                PaymentStatus
	Amount                int64
	CreatedAt             time.Time
}

// NewOrder builds a pending order. Total is the item sum minus discount, never negative.
func NewOrder(orderNo string, organizationID, eventYearID uint, items []Item, discount int64, couponID *uint) *Order {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}
	if discount > subtotal {
		discount = subtotal
	}

	now := time.Now()
	return &Order{
		OrderNo:        orderNo,
		OrganizationID: organizationID,
		EventYearID:    eventYearID,
		Status:         StatusPending,
		Total:          subtotal - discount,
		Discount:       discount,
		CouponID:       couponID,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasCompletedPayment reports whether any loaded payment completed.
func (o *Order) HasCompletedPayment() bool {
	for _, p := range o.Payments {
		if p.Status == PaymentCompleted {
			return true
		}
	}
	return false
}

// NotAbandoned is the single rule deciding whether an order's items count as
// purchased: it has a completed payment, or it is neither pending nor cancelled.
// The SQL stores express the same rule as a scope; keep them in step.
func NotAbandoned(o *Order) bool {
	if o.HasCompletedPayment() {
		return true
	}
	return o.Status != StatusPending && o.Status != StatusCancelled
}

// IsConfirmable reports whether a first payment may settle this order.
func (o *Order) IsConfirmable() bool {
	for _, s := range ConfirmableStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// AcceptsBalancePayment reports whether a later payment may settle the rest.
func (o *Order) AcceptsBalancePayment() bool {
	return o.Status == StatusDepositPaid
}

// QuantityOf sums the quantity ordered of a product.
func (o *Order) QuantityOf(productID uint) int {
	total := 0
	for _, item := range o.Items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

// PaidStatus is the status an order reaches once paid has been received.
func PaidStatus(total, paid int64) Status {
	if paid >= total {
		return StatusFullyPaid
	}
	return StatusDepositPaid
}
