package gateway

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/sportsfest/registration/internal/application/payment"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac>".
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance bounds the age of a signed delivery.
const DefaultTolerance = webhook.DefaultTolerance

// Webhook event types handled by the service.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

var ErrMalformedEvent = apperrors.New(apperrors.ErrCodeInvalidParams, "Malformed webhook event")

// Event is a webhook delivery. Intent is set for payment_intent.* events.
type Event struct {
	ID     string
	Type   string
	Intent *payment.Intent
}

// Verifier checks that a delivery was signed with the shared secret:
// v1 = hex(HMAC-SHA256(secret, t + "." + body)).
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a Verifier; a zero tolerance means DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// ConstructEvent verifies header against payload and decodes the event.
// Any v1 entry of the header may match, so the processor can sign with an
// old and a new secret during rotation.
func (v *Verifier) ConstructEvent(payload []byte, header string) (*Event, error) {
	if v.secret == "" {
		return nil, apperrors.ErrInvalidSignature
	}

	raw, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, apperrors.ErrInvalidSignature
		}
		return nil, ErrMalformedEvent
	}
	return toEvent(raw)
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func toEvent(raw stripe.Event) (*Event, error) {
	if raw.Type == "" {
		return nil, ErrMalformedEvent
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if !strings.HasPrefix(event.Type, "payment_intent.") {
		return event, nil
	}

	if raw.Data == nil {
		return nil, ErrMalformedEvent
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw.Data.Raw, &pi); err != nil || pi.ID == "" {
		return nil, ErrMalformedEvent
	}
	intent := toIntent(&pi)
	event.Intent = &intent
	return event, nil
}

// SignatureFor builds a header value for payload signed at t.
func (v *Verifier) SignatureFor(t time.Time, payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    v.secret,
		Timestamp: t,
	}).Header
}
