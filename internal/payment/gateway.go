package payment

import (
	"context"
	"encoding/json"
	"fmt"
)

// Order holds the gateway-issued order identifier plus the client-facing
// parameters needed to complete payment out-of-band.
type Order struct {
	ID       string
	Amount   int64 // smallest currency unit
	Currency string
}

type Outcome int

const (
	OutcomeUnrecognized Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// WebhookResult is the tagged form of a verified gateway callback. Handlers
// downstream branch on Outcome only, never on raw payload fields.
type WebhookResult struct {
	Outcome   Outcome
	OrderID   string
	PaymentID string
	Reason    string
}

// Gateway creates payment orders and authenticates inbound callbacks. It
// never mutates booking state; verified outcomes are reported back to the
// webhook processor.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	VerifySignature(payload []byte, signature string) bool
	KeyID() string
}

// webhookEnvelope is the gateway's callback shape: the payment entity is
// nested under payload.payment.entity and the shape varies by event kind.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook decodes a verified payload into its tagged variant. Event
// kinds outside the payment lifecycle come back as OutcomeUnrecognized with
// the order reference preserved when present.
func ParseWebhook(payload []byte) (*WebhookResult, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	entity := env.Payload.Payment.Entity
	result := &WebhookResult{
		OrderID:   entity.OrderID,
		PaymentID: entity.ID,
		Reason:    entity.ErrorDescription,
	}

	switch env.Event {
	case "payment.captured":
		result.Outcome = OutcomeSuccess
	case "payment.failed":
		result.Outcome = OutcomeFailure
	default:
		result.Outcome = OutcomeUnrecognized
	}
	return result, nil
}
