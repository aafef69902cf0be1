package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

type razorpayGateway struct {
	client        *razorpay.Client
	keyID         string
	webhookSecret string
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string) Gateway {
	return &razorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		webhookSecret: webhookSecret,
	}
}

func (g *razorpayGateway) KeyID() string {
	return g.keyID
}

// CreateOrder registers an order with the gateway. Amount is already in the
// smallest currency unit; payment_capture 1 auto-captures on authorization.
func (g *razorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	data := map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	type orderResult struct {
		body map[string]interface{}
		err  error
	}

	// The SDK call has no context support; race it against the deadline so a
	// slow gateway cannot hold the booking request open.
	ch := make(chan orderResult, 1)
	go func() {
		body, err := g.client.Order.Create(data, nil)
		ch <- orderResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("gateway order create: %w", res.err)
		}
		id, ok := res.body["id"].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("gateway order create: response missing order id")
		}
		return &Order{ID: id, Amount: amount, Currency: currency}, nil
	}
}

// VerifySignature recomputes the HMAC-SHA256 of the raw payload under the
// shared webhook secret and compares in constant time.
func (g *razorpayGateway) VerifySignature(payload []byte, signature string) bool {
	return VerifyHMAC(payload, signature, g.webhookSecret)
}

func VerifyHMAC(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
