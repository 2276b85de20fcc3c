// Package payment settles orders once the processor reports a payment.
//
// The client-side confirm call and the processor webhook both end in
// ConfirmPayment. Only one of them moves the order and runs the sale side
// effects for a given payment intent; the other sees the recorded payment
// and stops.
package payment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/inventory"
	"github.com/sportsfest/registration/internal/application/tentquota"
	"github.com/sportsfest/registration/internal/domain/coupon"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/domain/product"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// Event routing keys.
const (
	EventPaymentConfirmed = "payment.confirmed"
	EventPaymentFailed    = "payment.failed"
)

const defaultLockTTL = 30 * time.Second

var (
	ErrPaymentNotCompleted = apperrors.New(apperrors.ErrCodePaymentNotCompleted, "Payment has not succeeded")
	ErrPaymentInProgress   = apperrors.New(apperrors.ErrCodePaymentInProgress, "Payment is already being processed")
	ErrIntentWithoutOrder  = apperrors.New(apperrors.ErrCodeInvalidParams, "Payment intent carries no order reference")
)

// Source names the entry point of a confirmation.
type Source string

const (
	SourceDirect  Source = "direct"
	SourceWebhook Source = "webhook"
)

// IntentSucceeded is the processor status of a captured payment.
const IntentSucceeded = "succeeded"

// Intent is the part of a processor payment intent this service reads.
// OrderID comes from the intent metadata set at checkout.
type Intent struct {
	ID      string
	Status  string
	Amount  int64
	OrderID uint
}

// Gateway looks up payment intents at the processor.
type Gateway interface {
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
}

// IntentLocker is a short-lived per-intent mutex shared by all instances.
type IntentLocker interface {
	Acquire(ctx context.Context, intentID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, intentID string) error
}

// EventPublisher sends an event for the email and invoicing consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// TxManager runs fn in one store transaction.
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Options tune the service. Zero values are usable.
type Options struct {
	// ReleaseOnFailure cancels the order and releases its reservations
	// when the processor reports a failed payment.
	ReleaseOnFailure bool
	LockTTL          time.Duration
}

// Service confirms payments from both entry points and handles failed payments.
type Service struct {
	orders    order.Repository
	products  product.Repository
	coupons   coupon.Repository
	ledger    *inventory.Ledger
	tents     *tentquota.Service
	teams     TeamCreator
	gateway   Gateway
	locker    IntentLocker
	publisher EventPublisher
	tx        TxManager
	opts      Options
	logger    *zap.Logger
}

// Deps groups the collaborators of Service.
type Deps struct {
	Orders    order.Repository
	Products  product.Repository
	Coupons   coupon.Repository
	Ledger    *inventory.Ledger
	Tents     *tentquota.Service
	Teams     TeamCreator
	Gateway   Gateway
	Locker    IntentLocker // optional
	Publisher EventPublisher
	Tx        TxManager
}

// NewService creates a payment Service; zero Options take the defaults.
func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:    deps.Orders,
		products:  deps.Products,
		coupons:   deps.Coupons,
		ledger:    deps.Ledger,
		tents:     deps.Tents,
		teams:     deps.Teams,
		gateway:   deps.Gateway,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		tx:        deps.Tx,
		opts:      opts,
		logger:    logger,
	}
}
