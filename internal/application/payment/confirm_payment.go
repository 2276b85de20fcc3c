package payment

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/pkg/metrics"
	"github.com/sportsfest/registration/pkg/tracing"
)

const tracerName = "payment"

// Outcome of one confirmation attempt.
type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeInProgress Outcome = "in_progress"
	OutcomeFailed     Outcome = "failed"
)

// errStatusMoved rolls back the payment row when another confirmation
// changed the order status first.
var errStatusMoved = errors.New("order status changed concurrently")

// Confirmation is a succeeded payment intent reported by one entry point.
type Confirmation struct {
	Source Source
	Intent Intent
	// OrganizationID limits a direct confirmation to the caller's orders. 0 for webhooks.
	OrganizationID uint
}

// Receipt describes the order after a confirmation attempt.
type Receipt struct {
	OrderID    uint         `json:"order_id"`
	OrderNo    string       `json:"order_no"`
	Status     order.Status `json:"status"`
	Outcome    Outcome      `json:"outcome"`
	AmountPaid int64        `json:"amount_paid"`
}

// ConfirmedEvent is published on payment.confirmed.
type ConfirmedEvent struct {
	OrderID         uint         `json:"order_id"`
	OrderNo         string       `json:"order_no"`
	OrganizationID  uint         `json:"organization_id"`
	EventYearID     uint         `json:"event_year_id"`
	PaymentIntentID string       `json:"payment_intent_id"`
	Amount          int64        `json:"amount"`
	AmountPaid      int64        `json:"amount_paid"`
	Status          order.Status `json:"status"`
	Source          Source       `json:"source"`
	OccurredAt      time.Time    `json:"occurred_at"`
}

// ConfirmDirect checks the intent with the processor and confirms it for the
// calling organization.
func (s *Service) ConfirmDirect(ctx context.Context, organizationID uint, intentID string) (*Receipt, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != IntentSucceeded {
		s.logger.Info("direct confirmation of unfinished payment",
			zap.String("payment_intent_id", intentID),
			zap.String("intent_status", intent.Status),
		)
		return nil, ErrPaymentNotCompleted
	}
	return s.ConfirmPayment(ctx, Confirmation{Source: SourceDirect, Intent: *intent, OrganizationID: organizationID})
}

// settlement is what the confirmation transaction decided.
type settlement struct {
	order   *order.Order
	outcome Outcome
	paid    int64
	// first is set when the order left pending or payment_processing
	first bool
}

// ConfirmPayment records the payment and moves the order to deposit_paid or
// fully_paid, exactly once per intent. Guards, in order: the intent lock,
// the existing-payment lookup, the order status, the unique intent id on
// payments and the conditional status update.
//
// Side effects run after commit and only for a confirmed outcome; each one
// logs and swallows its own failure.
func (s *Service) ConfirmPayment(ctx context.Context, c Confirmation) (receipt *Receipt, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ConfirmPayment")
	span.SetAttributes(
		attribute.String("payment_intent_id", c.Intent.ID),
		attribute.String("source", string(c.Source)),
		attribute.Int64("order_id", int64(c.Intent.OrderID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	log := s.logger.With(
		zap.String("payment_intent_id", c.Intent.ID),
		zap.String("source", string(c.Source)),
		zap.Uint("order_id", c.Intent.OrderID),
	)

	if c.Intent.OrderID == 0 {
		s.record(c.Source, OutcomeFailed)
		return nil, ErrIntentWithoutOrder
	}

	if s.locker != nil {
		acquired, lockErr := s.locker.Acquire(ctx, c.Intent.ID, s.opts.LockTTL)
		switch {
		case lockErr != nil:
			log.Warn("intent lock unavailable, relying on store guards", zap.Error(lockErr))
		case !acquired:
			s.record(c.Source, OutcomeInProgress)
			return nil, ErrPaymentInProgress
		default:
			defer s.unlock(ctx, c.Intent.ID, log)
		}
	}

	var st *settlement
	err = s.tx.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		st, err = s.settle(txCtx, c)
		return err
	})
	switch {
	case errors.Is(err, errStatusMoved):
		st = &settlement{outcome: OutcomeSkipped}
	case err != nil:
		s.record(c.Source, OutcomeFailed)
		log.Error("payment confirmation failed", zap.Error(err))
		return nil, err
	}
	s.record(c.Source, st.outcome)

	if st.order == nil {
		st.order, err = s.orders.FindByID(ctx, c.Intent.OrderID)
		if err != nil {
			return nil, err
		}
	}
	o := st.order
	receipt = &Receipt{OrderID: o.ID, OrderNo: o.OrderNo, Status: o.Status, Outcome: st.outcome, AmountPaid: st.paid}

	if st.outcome != OutcomeConfirmed {
		log.Info("payment confirmation skipped",
			zap.String("outcome", string(st.outcome)),
			zap.String("order_status", string(o.Status)),
		)
		return receipt, nil
	}

	log.Info("payment confirmed",
		zap.String("order_status", string(o.Status)),
		zap.Int64("amount", c.Intent.Amount),
		zap.Int64("amount_paid", st.paid),
		zap.Bool("first_payment", st.first),
	)

	// the financial transition is committed; nothing below may undo it
	effectsCtx := context.WithoutCancel(ctx)
	if st.first {
		s.fulfil(effectsCtx, o, log)
	}
	s.publish(effectsCtx, EventPaymentConfirmed, ConfirmedEvent{
		OrderID:         o.ID,
		OrderNo:         o.OrderNo,
		OrganizationID:  o.OrganizationID,
		EventYearID:     o.EventYearID,
		PaymentIntentID: c.Intent.ID,
		Amount:          c.Intent.Amount,
		AmountPaid:      st.paid,
		Status:          o.Status,
		Source:          c.Source,
		OccurredAt:      time.Now(),
	}, log)

	return receipt, nil
}

func (s *Service) settle(ctx context.Context, c Confirmation) (*settlement, error) {
	o, err := s.orders.FindByID(ctx, c.Intent.OrderID)
	if err != nil {
		return nil, err
	}
	if c.OrganizationID != 0 && o.OrganizationID != c.OrganizationID {
		return nil, order.ErrOrderNotFound
	}

	_, err = s.orders.FindPaymentByIntentID(ctx, c.Intent.ID)
	switch {
	case err == nil:
		return &settlement{order: o, outcome: OutcomeDuplicate}, nil
	case !errors.Is(err, order.ErrPaymentNotFound):
		return nil, err
	}

	st := &settlement{order: o, outcome: OutcomeSkipped}
	var from []order.Status
	switch {
	case o.IsConfirmable():
		from = order.ConfirmableStatuses
		st.first = true
	case o.AcceptsBalancePayment():
		from = []order.Status{order.StatusDepositPaid}
	default:
		return st, nil
	}

	err = s.orders.CreatePayment(ctx, &order.Payment{
		OrderID:               o.ID,
		StripePaymentIntentID: c.Intent.ID,
		Status:                order.PaymentCompleted,
		Amount:                c.Intent.Amount,
	})
	if errors.Is(err, order.ErrDuplicatePayment) {
		return &settlement{order: o, outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		return nil, err
	}

	paid, err := s.orders.SumCompletedPayments(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	to := order.PaidStatus(o.Total, paid)
	changed, err := s.orders.TransitionStatus(ctx, o.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errStatusMoved
	}

	o.Status = to
	st.outcome = OutcomeConfirmed
	st.paid = paid
	return st, nil
}

func (s *Service) unlock(ctx context.Context, intentID string, log *zap.Logger) {
	if err := s.locker.Release(context.WithoutCancel(ctx), intentID); err != nil {
		log.Warn("release intent lock failed", zap.Error(err))
	}
}

func (s *Service) record(source Source, outcome Outcome) {
	metrics.RecordPaymentConfirmation(string(source), string(outcome))
}
