// Package gateway talks to the payment processor through stripe-go: it
// looks up payment intents and verifies signed webhook deliveries.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/application/payment"
	"github.com/sportsfest/registration/internal/infrastructure/config"
	"github.com/sportsfest/registration/pkg/circuitbreaker"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

var (
	ErrIntentNotFound     = apperrors.New(apperrors.ErrCodeNotFound, "Payment intent not found")
	ErrGatewayUnavailable = apperrors.New(apperrors.ErrCodeGatewayError, "Payment processor unavailable")
)

const defaultTimeout = 10 * time.Second

// toIntent keeps the fields the payment service checks. The order id
// travels in the intent's metadata.
func toIntent(pi *stripe.PaymentIntent) payment.Intent {
	intent := payment.Intent{ID: pi.ID, Status: string(pi.Status), Amount: pi.Amount}
	if id, err := strconv.ParseUint(pi.Metadata["order_id"], 10, 64); err == nil {
		intent.OrderID = uint(id)
	}
	return intent
}

// Client implements payment.Gateway.
type Client struct {
	intents paymentintent.Client
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
}

var _ payment.Gateway = (*Client)(nil)

// NewClient creates a Client for cfg.APIBaseURL. Retries are left to the
// confirmation caller, so the backend makes a single attempt per call.
func NewClient(cfg config.PaymentConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Named("stripe").Sugar(),
		EnableTelemetry:   stripe.Bool(false),
	}
	if base := strings.TrimRight(cfg.APIBaseURL, "/"); base != "" {
		backendCfg.URL = stripe.String(base)
	}

	return &Client{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.APIKey,
		},
		breaker: circuitbreaker.New("payment-processor", circuitbreaker.Settings{
			IsFailure: func(err error) bool { return !errors.Is(err, ErrIntentNotFound) },
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
		logger: logger,
	}
}

// RetrieveIntent runs GET {base}/v1/payment_intents/{id}.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	if intentID == "" {
		return nil, ErrIntentNotFound
	}

	var pi *stripe.PaymentIntent
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx

		var err error
		pi, err = c.intents.Get(intentID, params)
		return c.mapError(intentID, err)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, ErrGatewayUnavailable
		}
		return nil, err
	}

	intent := toIntent(pi)
	return &intent, nil
}

func (c *Client) mapError(intentID string, err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return ErrIntentNotFound
		}
		c.logger.Warn("payment processor error",
			zap.String("intent_id", intentID),
			zap.Int("status", stripeErr.HTTPStatusCode),
			zap.String("type", string(stripeErr.Type)),
		)
	}
	return &apperrors.AppError{Code: apperrors.ErrCodeGatewayError, Message: "payment processor request failed", Err: err}
}
