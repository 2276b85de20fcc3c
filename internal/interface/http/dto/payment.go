package dto

// ConfirmPaymentRequest names the intent the checkout page completed.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required" example:"pi_3Nk2aB"`
}

// WebhookAck is returned for every accepted delivery, handled or not.
type WebhookAck struct {
	Received bool   `json:"received" example:"true"`
	Outcome  string `json:"outcome,omitempty" example:"confirmed"`
}
