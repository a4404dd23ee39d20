// Package payments creates Razorpay payment links for online orders and
// consumes the gateway's webhooks. Webhooks are delivered at least once;
// a redis SetNX guard plus the order-level short-circuits keep processing
// idempotent.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/metrics"
	"github.com/AgriNITMZ/agriapp-backend/pkg/razorpay"
	"github.com/AgriNITMZ/agriapp-backend/pkg/redis"
)

const webhookDedupeTTL = 24 * time.Hour

// paiseFactor converts rupee amounts to the gateway's smallest unit.
var paiseFactor = decimal.NewFromInt(100)

type orderTransitions interface {
	Get(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error)
	AttachPaymentLink(ctx context.Context, orderID uuid.UUID, linkID string) error
	ConfirmPayment(ctx context.Context, linkID string) (*models.Order, error)
	FailPayment(ctx context.Context, linkID string) (*models.Order, error)
	FindByPaymentLink(ctx context.Context, linkID string) (*models.Order, error)
}

// Service defines payment operations.
type Service interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*LinkResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	VerifyCallback(ctx context.Context, params razorpay.CallbackParams) (*models.Order, error)
}

// CreateLinkInput requests a hosted payment link for an order.
type CreateLinkInput struct {
	Actor   orders.Actor
	OrderID uuid.UUID
}

// LinkResult is the payment link exposed to the client.
type LinkResult struct {
	PaymentLinkID string `json:"payment_link_id"`
	ShortURL      string `json:"short_url"`
	Status        string `json:"status"`
}

type service struct {
	gateway razorpay.Gateway
	orders  orderTransitions
	dedupe  redis.IdempotencyStore
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewService builds the payments service.
func NewService(
	gateway razorpay.Gateway,
	orderSvc orderTransitions,
	dedupe redis.IdempotencyStore,
	registry *metrics.Registry,
	logg *logger.Logger,
) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway: gateway,
		orders:  orderSvc,
		dedupe:  dedupe,
		metrics: registry,
		logger:  logg,
	}, nil
}

func (s *service) CreateLink(ctx context.Context, input CreateLinkInput) (*LinkResult, error) {
	order, err := s.orders.Get(ctx, input.Actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not an online payment order")
	}
	switch {
	case order.PaymentStatus == enums.PaymentStatusCompleted:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	case order.OrderStatus == enums.OrderStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	// reuse a live link instead of minting a new one per retry
	if order.RazorpayPaymentLinkID != nil && *order.RazorpayPaymentLinkID != "" {
		link, err := s.gateway.FetchPaymentLink(ctx, *order.RazorpayPaymentLinkID)
		if err == nil && link.Status == razorpay.LinkStatusCreated {
			return &LinkResult{PaymentLinkID: link.ID, ShortURL: link.ShortURL, Status: link.Status}, nil
		}
	}

	amountPaise := order.TotalAmount.Mul(paiseFactor).IntPart()
	link, err := s.gateway.CreatePaymentLink(ctx, razorpay.PaymentLinkParams{
		AmountPaise:   amountPaise,
		ReferenceID:   order.ID.String(),
		Description:   fmt.Sprintf("AgriApp order %s", order.ID),
		CustomerName:  order.AddressSnapshot.Name,
		CustomerPhone: order.AddressSnapshot.Phone,
		Notes:         map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.AttachPaymentLink(ctx, order.ID, link.ID); err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "payment link created")
	return &LinkResult{PaymentLinkID: link.ID, ShortURL: link.ShortURL, Status: link.Status}, nil
}

// webhookEvent is the subset of the Razorpay envelope the service consumes.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink struct {
			Entity struct {
				ID          string `json:"id"`
				ReferenceID string `json:"reference_id"`
				Status      string `json:"status"`
			} `json:"entity"`
		} `json:"payment_link"`
	} `json:"payload"`
}

func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.metrics.IncWebhook("invalid_signature")
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.metrics.IncWebhook("malformed")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	linkID := event.Payload.PaymentLink.Entity.ID
	if linkID == "" {
		s.metrics.IncWebhook("ignored")
		return nil
	}

	// at-least-once delivery: first writer wins, replays return early
	dedupeKey := s.dedupe.IdempotencyKey("razorpay_webhook", fmt.Sprintf("%s:%s", event.Event, linkID))
	firstDelivery, err := s.dedupe.SetNX(ctx, dedupeKey, time.Now().UTC().Format(time.RFC3339), webhookDedupeTTL)
	if err != nil {
		// redis being down must not drop payments: fall through, the
		// order-level short-circuits still guarantee idempotency
		s.logger.Error(ctx, "webhook dedupe check failed", err)
	} else if !firstDelivery {
		s.metrics.IncWebhook("duplicate")
		return nil
	}

	switch event.Event {
	case "payment_link.paid":
		if _, err := s.orders.ConfirmPayment(ctx, linkID); err != nil {
			s.releaseDedupe(ctx, dedupeKey)
			s.metrics.IncWebhook("failed")
			return err
		}
		s.metrics.IncWebhook("paid")
	case "payment_link.cancelled", "payment_link.expired":
		if _, err := s.orders.FailPayment(ctx, linkID); err != nil {
			s.releaseDedupe(ctx, dedupeKey)
			s.metrics.IncWebhook("failed")
			return err
		}
		s.metrics.IncWebhook("failed_payment")
	default:
		s.metrics.IncWebhook("ignored")
	}
	return nil
}

func (s *service) VerifyCallback(ctx context.Context, params razorpay.CallbackParams) (*models.Order, error) {
	if !s.gateway.VerifyPaymentLinkSignature(params) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback signature")
	}

	// the redirect query is client-supplied; the gateway's live status is
	// authoritative
	link, err := s.gateway.FetchPaymentLink(ctx, params.PaymentLinkID)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(link.Status) {
	case razorpay.LinkStatusPaid:
		return s.orders.ConfirmPayment(ctx, params.PaymentLinkID)
	case razorpay.LinkStatusCancelled, razorpay.LinkStatusExpired, razorpay.LinkStatusFailed:
		return s.orders.FailPayment(ctx, params.PaymentLinkID)
	default:
		// link still open: report the order as-is, nothing to transition
		return s.orders.FindByPaymentLink(ctx, params.PaymentLinkID)
	}
}

// releaseDedupe frees the guard so the gateway's retry can reprocess after a
// transient failure.
func (s *service) releaseDedupe(ctx context.Context, key string) {
	if err := s.dedupe.Del(ctx, key); err != nil {
		s.logger.Error(ctx, "release webhook dedupe key", err)
	}
}
