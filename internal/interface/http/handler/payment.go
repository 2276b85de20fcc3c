package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/payment"
	"github.com/sportsfest/registration/internal/domain/order"
	"github.com/sportsfest/registration/internal/infrastructure/gateway"
	"github.com/sportsfest/registration/internal/interface/http/dto"
	"github.com/sportsfest/registration/internal/interface/http/middleware"
	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/response"
)

const maxWebhookBody = 64 << 10

// PaymentService is implemented by payment.Service.
type PaymentService interface {
	ConfirmDirect(ctx context.Context, organizationID uint, intentID string) (*payment.Receipt, error)
	ConfirmPayment(ctx context.Context, c payment.Confirmation) (*payment.Receipt, error)
	HandlePaymentFailed(ctx context.Context, intent payment.Intent) error
}

// EventVerifier checks a webhook signature and decodes the event.
type EventVerifier interface {
	ConstructEvent(payload []byte, header string) (*gateway.Event, error)
}

// PaymentHandler serves payment confirmation and the processor webhook.
type PaymentHandler struct {
	payments PaymentService
	verifier EventVerifier
	logger   *zap.Logger
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(payments PaymentService, verifier EventVerifier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, verifier: verifier, logger: logger}
}

// Confirm is called by the checkout page once the processor reports success.
// @Summary      Confirm payment
// @Description  Verifies the intent with the processor and marks the order paid. Safe to repeat; the webhook may already have confirmed it.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.ConfirmPaymentRequest true "intent"
// @Success      200 {object} response.Response{data=payment.Receipt}
// @Failure      400 {object} response.Response "40007 payment not completed, 40008 already being processed"
// @Router       /api/v1/payments/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	orgID, _ := middleware.GetOrganization(c)
	receipt, err := h.payments.ConfirmDirect(c.Request.Context(), orgID, req.PaymentIntentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, receipt)
}

// Webhook receives signed processor events.
//
// Errors that a redelivery cannot fix are acknowledged with 200; store or
// processor failures answer 500 so the processor retries.
// @Summary      Payment webhook
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "t=<unix>,v1=<hex hmac-sha256>"
// @Success      200 {object} response.Response{data=dto.WebhookAck}
// @Failure      401 {object} response.Response "invalid signature"
// @Failure      500 {object} response.Response "retry"
// @Router       /api/v1/webhooks/payments [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "unreadable webhook body")
		return
	}
	event, err := h.verifier.ConstructEvent(body, c.GetHeader(gateway.SignatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}

	log := middleware.GetLogger(c, h.logger).With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)
	ctx := c.Request.Context()

	switch event.Type {
	case gateway.EventIntentSucceeded:
		receipt, err := h.payments.ConfirmPayment(ctx, payment.Confirmation{
			Source: payment.SourceWebhook,
			Intent: *event.Intent,
		})
		if err != nil {
			h.acknowledgeOrFail(c, log, err)
			return
		}
		response.Success(c, dto.WebhookAck{Received: true, Outcome: string(receipt.Outcome)})

	case gateway.EventIntentFailed:
		if err := h.payments.HandlePaymentFailed(ctx, *event.Intent); err != nil {
			h.acknowledgeOrFail(c, log, err)
			return
		}
		response.Success(c, dto.WebhookAck{Received: true})

	default:
		log.Debug("webhook event ignored")
		response.Success(c, dto.WebhookAck{Received: true})
	}
}

func (h *PaymentHandler) acknowledgeOrFail(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, payment.ErrIntentWithoutOrder), errors.Is(err, order.ErrOrderNotFound):
		log.Warn("webhook event does not match an order", zap.Error(err))
		response.Success(c, dto.WebhookAck{Received: true, Outcome: string(payment.OutcomeSkipped)})
	case errors.Is(err, payment.ErrPaymentInProgress):
		// the other entry point may still fail; ask for a redelivery
		c.JSON(http.StatusConflict, response.Response{
			Code:    apperrors.ErrCodePaymentInProgress,
			Message: payment.ErrPaymentInProgress.Message,
		})
	default:
		log.Error("webhook event failed", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrCodeInternal, "webhook processing failed")
	}
}
