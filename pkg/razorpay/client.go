package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	rzpsdk "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

var (
	errKeyRequired           = errors.New("razorpay key id and secret are required")
	errWebhookSecretRequired = errors.New("razorpay webhook secret is required")
	errLoggerRequired        = errors.New("razorpay logger is required")
)

// Gateway is the payment-link surface consumed by the payments service.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*PaymentLink, error)
	FetchPaymentLink(ctx context.Context, linkID string) (*PaymentLink, error)
	VerifyWebhookSignature(body []byte, signature string) bool
	VerifyPaymentLinkSignature(params CallbackParams) bool
}

// Client wraps the Razorpay SDK with centralized logging and error mapping.
type Client struct {
	sdk           *rzpsdk.Client
	keySecret     string
	webhookSecret string
	callbackURL   string
	logger        *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, errKeyRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	c := &Client{
		sdk:           rzpsdk.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		callbackURL:   strings.TrimSpace(cfg.CallbackURL),
		logger:        logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// CreatePaymentLink creates a hosted payment link for the given order.
func (c *Client) CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*PaymentLink, error) {
	data := params.toRequest(c.callbackURL)
	c.log(ctx, "request", "create_payment_link", map[string]any{
		"reference_id": params.ReferenceID,
		"amount":       params.AmountPaise,
	})

	resp, err := c.sdk.PaymentLink.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_payment_link", map[string]any{"error": err.Error()})
		return nil, c.mapError(err, "create payment link")
	}

	link := parsePaymentLink(resp)
	c.log(ctx, "response", "create_payment_link", map[string]any{
		"payment_link_id": link.ID,
		"status":          link.Status,
	})
	return link, nil
}

// FetchPaymentLink retrieves the current state of a payment link.
func (c *Client) FetchPaymentLink(ctx context.Context, linkID string) (*PaymentLink, error) {
	c.log(ctx, "request", "fetch_payment_link", map[string]any{"payment_link_id": linkID})

	resp, err := c.sdk.PaymentLink.Fetch(linkID, nil, nil)
	if err != nil {
		c.log(ctx, "error", "fetch_payment_link", map[string]any{"error": err.Error()})
		return nil, c.mapError(err, "fetch payment link")
	}

	link := parsePaymentLink(resp)
	c.log(ctx, "response", "fetch_payment_link", map[string]any{
		"payment_link_id": link.ID,
		"status":          link.Status,
	})
	return link, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil || strings.TrimSpace(signature) == "" {
		return false
	}
	return rzputils.VerifyWebhookSignature(string(body), signature, c.webhookSecret)
}

// VerifyPaymentLinkSignature validates the callback redirect parameters. The
// signature covers the pipe-joined link id, reference id, status, and payment id
// signed with the API key secret.
func (c *Client) VerifyPaymentLinkSignature(params CallbackParams) bool {
	if c == nil || strings.TrimSpace(params.Signature) == "" {
		return false
	}

	payload := strings.Join([]string{
		params.PaymentLinkID,
		params.PaymentLinkReferenceID,
		params.PaymentLinkStatus,
		params.PaymentID,
	}, "|")

	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(params.Signature))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "email", "phone", "contact"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	code := pkgerrors.CodeDependency
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "unauthorized"):
		code = pkgerrors.CodeUnauthorized
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "not found"):
		code = pkgerrors.CodeNotFound
	case strings.Contains(msg, "bad_request"), strings.Contains(msg, "invalid"):
		code = pkgerrors.CodeValidation
	}
	return pkgerrors.Wrap(code, err, fmt.Sprintf("razorpay %s failed", op))
}
