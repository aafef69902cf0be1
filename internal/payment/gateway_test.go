package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMAC_Valid(t *testing.T) {
	payload := []byte(`{"event":"payment.captured"}`)
	secret := "whsec_test"

	assert.True(t, VerifyHMAC(payload, sign(payload, secret), secret))
}

func TestVerifyHMAC_WrongSecret(t *testing.T) {
	payload := []byte(`{"event":"payment.captured"}`)

	assert.False(t, VerifyHMAC(payload, sign(payload, "whsec_other"), "whsec_test"))
}

func TestVerifyHMAC_TamperedPayload(t *testing.T) {
	secret := "whsec_test"
	signature := sign([]byte(`{"amount":100}`), secret)

	assert.False(t, VerifyHMAC([]byte(`{"amount":999}`), signature, secret))
}

func TestVerifyHMAC_EmptySignature(t *testing.T) {
	assert.False(t, VerifyHMAC([]byte(`{}`), "", "whsec_test"))
}

func TestVerifyHMAC_EmptySecret(t *testing.T) {
	payload := []byte(`{}`)
	assert.False(t, VerifyHMAC(payload, sign(payload, ""), ""))
}

func TestParseWebhook_PaymentCaptured(t *testing.T) {
	payload := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_abc123",
			"order_id": "order_xyz789",
			"status": "captured"
		}}}
	}`)

	result, err := ParseWebhook(payload)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "order_xyz789", result.OrderID)
	assert.Equal(t, "pay_abc123", result.PaymentID)
}

func TestParseWebhook_PaymentFailed(t *testing.T) {
	payload := []byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {
			"id": "pay_abc123",
			"order_id": "order_xyz789",
			"status": "failed",
			"error_description": "card declined"
		}}}
	}`)

	result, err := ParseWebhook(payload)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Equal(t, "order_xyz789", result.OrderID)
	assert.Equal(t, "card declined", result.Reason)
}

func TestParseWebhook_UnrecognizedEvent(t *testing.T) {
	payload := []byte(`{
		"event": "refund.processed",
		"payload": {"payment": {"entity": {"id": "pay_1", "order_id": "order_1"}}}
	}`)

	result, err := ParseWebhook(payload)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeUnrecognized, result.Outcome)
	assert.Equal(t, "order_1", result.OrderID)
}

func TestParseWebhook_MalformedJSON(t *testing.T) {
	result, err := ParseWebhook([]byte(`{not json`))

	assert.Error(t, err)
	assert.Nil(t, result)
}
