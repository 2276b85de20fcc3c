package payment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/pkg/tracing"
)

// FailedEvent is published on payment.failed.
type FailedEvent struct {
	OrderID         uint         `json:"order_id"`
	OrderNo         string       `json:"order_no"`
	OrganizationID  uint         `json:"organization_id"`
	PaymentIntentID string       `json:"payment_intent_id"`
	Status          order.Status `json:"status"`
	Released        bool         `json:"released"`
	OccurredAt      time.Time    `json:"occurred_at"`
}

// HandlePaymentFailed reacts to a failed payment intent.
//
// By default the order goes back from payment_processing to pending and keeps
// its reservations so the user can retry. With ReleaseOnFailure the order is
// cancelled and its reservations are released. Paid orders are left alone.
func (s *Service) HandlePaymentFailed(ctx context.Context, intent Intent) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "HandlePaymentFailed")
	span.SetAttributes(attribute.String("payment_intent_id", intent.ID), attribute.Int64("order_id", int64(intent.OrderID)))
	defer func() { tracing.EndSpan(span, err) }()

	log := s.logger.With(zap.String("payment_intent_id", intent.ID), zap.Uint("order_id", intent.OrderID))

	if intent.OrderID == 0 {
		return ErrIntentWithoutOrder
	}

	o, err := s.orders.FindByID(ctx, intent.OrderID)
	if err != nil {
		return err
	}
	if o.HasCompletedPayment() {
		log.Info("payment failure ignored, order already has a completed payment",
			zap.String("order_status", string(o.Status)))
		return nil
	}

	from := []order.Status{order.StatusPaymentProcessing}
	to := order.StatusPending
	if s.opts.ReleaseOnFailure {
		from = order.ConfirmableStatuses
		to = order.StatusCancelled
	}

	var changed bool
	err = s.tx.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		changed, err = s.orders.TransitionStatus(txCtx, o.ID, from, to)
		return err
	})
	if err != nil {
		log.Error("payment failure: status update failed", zap.Error(err))
		return err
	}
	if changed {
		o.Status = to
	}

	effectsCtx := context.WithoutCancel(ctx)
	released := changed && s.opts.ReleaseOnFailure
	if released {
		s.releaseItems(effectsCtx, o, log)
	}

	log.Info("payment failure handled",
		zap.String("order_status", string(o.Status)),
		zap.Bool("status_changed", changed),
		zap.Bool("released", released),
	)

	s.publish(effectsCtx, EventPaymentFailed, FailedEvent{
		OrderID:         o.ID,
		OrderNo:         o.OrderNo,
		OrganizationID:  o.OrganizationID,
		PaymentIntentID: intent.ID,
		Status:          o.Status,
		Released:        released,
		OccurredAt:      time.Now(),
	}, log)
	return nil
}
