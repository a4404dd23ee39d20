package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

func TestNewClientValidatesCredentials(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ctx := context.Background()

	_, err := NewClient(ctx, config.RazorpayConfig{}, logg)
	require.ErrorIs(t, err, errKeyRequired)

	_, err = NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_abc", KeySecret: "secret"}, logg)
	require.ErrorIs(t, err, errWebhookSecretRequired)

	_, err = NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_abc", KeySecret: "secret", WebhookSecret: "whsec"}, nil)
	require.ErrorIs(t, err, errLoggerRequired)

	client, err := NewClient(ctx, config.RazorpayConfig{
		KeyID:         "rzp_test_abc",
		KeySecret:     "secret",
		WebhookSecret: "whsec",
		CallbackURL:   "https://example.com/payments/verify",
	}, logg)
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestPaymentLinkParamsToRequest(t *testing.T) {
	params := PaymentLinkParams{
		AmountPaise:   125000,
		ReferenceID:   "order-123",
		Description:   "AgriApp order",
		CustomerName:  "Lalrinsanga",
		CustomerPhone: "+919999988888",
		Notes:         map[string]string{"order_id": "order-123"},
	}

	data := params.toRequest("https://example.com/verify")

	assert.Equal(t, int64(125000), data["amount"])
	assert.Equal(t, "INR", data["currency"])
	assert.Equal(t, "order-123", data["reference_id"])
	assert.Equal(t, "https://example.com/verify", data["callback_url"])

	customer, ok := data["customer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "+919999988888", customer["contact"])
	_, hasEmail := customer["email"]
	assert.False(t, hasEmail)

	notify, ok := data["notify"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, notify["email"])
}

func TestParsePaymentLink(t *testing.T) {
	link := parsePaymentLink(map[string]interface{}{
		"id":           "plink_001",
		"short_url":    "https://rzp.io/l/abc",
		"status":       "created",
		"reference_id": "order-123",
		"amount":       float64(125000),
	})

	assert.Equal(t, "plink_001", link.ID)
	assert.Equal(t, LinkStatusCreated, link.Status)
	assert.Equal(t, int64(125000), link.AmountPaise)
}

func TestVerifyPaymentLinkSignature(t *testing.T) {
	client := &Client{keySecret: "secret"}

	params := CallbackParams{
		PaymentLinkID:          "plink_001",
		PaymentLinkReferenceID: "order-123",
		PaymentLinkStatus:      "paid",
		PaymentID:              "pay_001",
	}

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("plink_001|order-123|paid|pay_001"))
	params.Signature = hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyPaymentLinkSignature(params))

	params.PaymentLinkStatus = "cancelled"
	assert.False(t, client.VerifyPaymentLinkSignature(params))

	params.Signature = ""
	assert.False(t, client.VerifyPaymentLinkSignature(params))
}
