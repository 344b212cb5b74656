package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header value for the payload,
// the same scheme the real provider uses: v1 is an HMAC-SHA256 of
// "<timestamp>.<payload>" keyed with the endpoint secret.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeProvider_Name(t *testing.T) {
	p := NewStripeProvider("sk_test_123", testWebhookSecret, zap.NewNop())
	assert.Equal(t, "STRIPE", p.Name())
}

func TestStripeProvider_VerifyWebhookSignature(t *testing.T) {
	p := NewStripeProvider("sk_test_123", testWebhookSecret, zap.NewNop())
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	t.Run("valid signature", func(t *testing.T) {
		sig := signPayload(payload, testWebhookSecret, time.Now())
		assert.NoError(t, p.VerifyWebhookSignature(payload, sig))
	})

	t.Run("wrong secret", func(t *testing.T) {
		sig := signPayload(payload, "whsec_other", time.Now())
		assert.Error(t, p.VerifyWebhookSignature(payload, sig))
	})

	t.Run("tampered payload", func(t *testing.T) {
		sig := signPayload(payload, testWebhookSecret, time.Now())
		tampered := []byte(`{"id":"evt_2","type":"checkout.session.completed"}`)
		assert.Error(t, p.VerifyWebhookSignature(tampered, sig))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		sig := signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))
		assert.Error(t, p.VerifyWebhookSignature(payload, sig))
	})

	t.Run("garbage header", func(t *testing.T) {
		assert.Error(t, p.VerifyWebhookSignature(payload, "not-a-signature"))
	})
}
