package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/razorpay"
	"github.com/AgriNITMZ/agriapp-backend/pkg/types"
)

type stubGateway struct {
	validSignature string
	created        []razorpay.PaymentLinkParams
	fetched        map[string]*razorpay.PaymentLink
	callbackValid  bool
}

func (g *stubGateway) CreatePaymentLink(_ context.Context, params razorpay.PaymentLinkParams) (*razorpay.PaymentLink, error) {
	g.created = append(g.created, params)
	return &razorpay.PaymentLink{
		ID:          fmt.Sprintf("plink_%d", len(g.created)),
		ShortURL:    "https://rzp.io/l/test",
		Status:      razorpay.LinkStatusCreated,
		ReferenceID: params.ReferenceID,
		AmountPaise: params.AmountPaise,
	}, nil
}

func (g *stubGateway) FetchPaymentLink(_ context.Context, linkID string) (*razorpay.PaymentLink, error) {
	if link, ok := g.fetched[linkID]; ok {
		return link, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "link not found")
}

func (g *stubGateway) VerifyWebhookSignature(_ []byte, signature string) bool {
	return signature == g.validSignature
}

func (g *stubGateway) VerifyPaymentLinkSignature(razorpay.CallbackParams) bool {
	return g.callbackValid
}

type stubOrders struct {
	order        *models.Order
	confirmCalls int
	failCalls    int
	confirmErr   error
}

func (o *stubOrders) Get(context.Context, orders.Actor, uuid.UUID) (*models.Order, error) {
	if o.order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return o.order, nil
}

func (o *stubOrders) AttachPaymentLink(_ context.Context, _ uuid.UUID, linkID string) error {
	o.order.RazorpayPaymentLinkID = &linkID
	return nil
}

func (o *stubOrders) ConfirmPayment(context.Context, string) (*models.Order, error) {
	if o.confirmErr != nil {
		return nil, o.confirmErr
	}
	o.confirmCalls++
	return o.order, nil
}

func (o *stubOrders) FailPayment(context.Context, string) (*models.Order, error) {
	o.failCalls++
	return o.order, nil
}

func (o *stubOrders) FindByPaymentLink(context.Context, string) (*models.Order, error) {
	if o.order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment link")
	}
	return o.order, nil
}

type memoryDedupe struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryDedupe() *memoryDedupe {
	return &memoryDedupe{keys: map[string]string{}}
}

func (m *memoryDedupe) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryDedupe) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[key]; exists {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryDedupe) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func (m *memoryDedupe) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func pendingOnlineOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		TotalAmount:   decimal.NewFromFloat(1350.50),
		PaymentMethod: enums.PaymentMethodOnline,
		PaymentStatus: enums.PaymentStatusPending,
		OrderStatus:   enums.OrderStatusPending,
		AddressSnapshot: types.AddressSnapshot{
			Name:  "Lalrinsanga",
			Phone: "9999988888",
		},
	}
}

func newTestService(t *testing.T, gateway *stubGateway, orderSvc *stubOrders) Service {
	t.Helper()
	svc, err := NewService(gateway, orderSvc, newMemoryDedupe(),
		nil, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func paidWebhookBody(linkID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"event": "payment_link.paid",
		"payload": map[string]any{
			"payment_link": map[string]any{
				"entity": map[string]any{
					"id":     linkID,
					"status": "paid",
				},
			},
		},
	})
	return body
}

func TestCreateLink(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{fetched: map[string]*razorpay.PaymentLink{}}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	svc := newTestService(t, gateway, orderSvc)

	result, err := svc.CreateLink(context.Background(), CreateLinkInput{OrderID: orderSvc.order.ID})
	require.NoError(t, err)
	assert.Equal(t, "plink_1", result.PaymentLinkID)
	assert.Equal(t, razorpay.LinkStatusCreated, result.Status)

	require.Len(t, gateway.created, 1)
	// rupees to paise, truncated to the smallest unit
	assert.Equal(t, int64(135050), gateway.created[0].AmountPaise)
	assert.Equal(t, orderSvc.order.ID.String(), gateway.created[0].ReferenceID)
	require.NotNil(t, orderSvc.order.RazorpayPaymentLinkID)
}

func TestCreateLinkReusesLiveLink(t *testing.T) {
	t.Parallel()

	existing := "plink_live"
	order := pendingOnlineOrder()
	order.RazorpayPaymentLinkID = &existing

	gateway := &stubGateway{fetched: map[string]*razorpay.PaymentLink{
		existing: {ID: existing, ShortURL: "https://rzp.io/l/live", Status: razorpay.LinkStatusCreated},
	}}
	orderSvc := &stubOrders{order: order}
	svc := newTestService(t, gateway, orderSvc)

	result, err := svc.CreateLink(context.Background(), CreateLinkInput{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, existing, result.PaymentLinkID)
	assert.Empty(t, gateway.created)
}

func TestCreateLinkRejectsWrongState(t *testing.T) {
	t.Parallel()

	codOrder := pendingOnlineOrder()
	codOrder.PaymentMethod = enums.PaymentMethodCOD
	svc := newTestService(t, &stubGateway{}, &stubOrders{order: codOrder})
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{OrderID: codOrder.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	paid := pendingOnlineOrder()
	paid.PaymentStatus = enums.PaymentStatusCompleted
	svc = newTestService(t, &stubGateway{}, &stubOrders{order: paid})
	_, err = svc.CreateLink(context.Background(), CreateLinkInput{OrderID: paid.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestHandleWebhookPaid(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{validSignature: "sig-ok"}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	svc := newTestService(t, gateway, orderSvc)

	err := svc.HandleWebhook(context.Background(), paidWebhookBody("plink_1"), "sig-ok")
	require.NoError(t, err)
	assert.Equal(t, 1, orderSvc.confirmCalls)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{validSignature: "sig-ok"}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	svc := newTestService(t, gateway, orderSvc)

	err := svc.HandleWebhook(context.Background(), paidWebhookBody("plink_1"), "forged")
	requireCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Zero(t, orderSvc.confirmCalls)
}

func TestHandleWebhookReplayShortCircuits(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{validSignature: "sig-ok"}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	svc := newTestService(t, gateway, orderSvc)
	ctx := context.Background()
	body := paidWebhookBody("plink_1")

	require.NoError(t, svc.HandleWebhook(ctx, body, "sig-ok"))
	require.NoError(t, svc.HandleWebhook(ctx, body, "sig-ok"))
	require.NoError(t, svc.HandleWebhook(ctx, body, "sig-ok"))

	assert.Equal(t, 1, orderSvc.confirmCalls)
}

func TestHandleWebhookRetriableAfterFailure(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{validSignature: "sig-ok"}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	orderSvc.confirmErr = pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")
	svc := newTestService(t, gateway, orderSvc)
	ctx := context.Background()
	body := paidWebhookBody("plink_1")

	require.Error(t, svc.HandleWebhook(ctx, body, "sig-ok"))

	// the dedupe key was released, so the gateway retry gets through
	orderSvc.confirmErr = nil
	require.NoError(t, svc.HandleWebhook(ctx, body, "sig-ok"))
	assert.Equal(t, 1, orderSvc.confirmCalls)
}

func TestHandleWebhookCancelledAndExpired(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{validSignature: "sig-ok"}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	svc := newTestService(t, gateway, orderSvc)
	ctx := context.Background()

	for i, event := range []string{"payment_link.cancelled", "payment_link.expired"} {
		body, _ := json.Marshal(map[string]any{
			"event": event,
			"payload": map[string]any{
				"payment_link": map[string]any{
					"entity": map[string]any{"id": fmt.Sprintf("plink_%d", i)},
				},
			},
		})
		require.NoError(t, svc.HandleWebhook(ctx, body, "sig-ok"))
	}
	assert.Equal(t, 2, orderSvc.failCalls)
}

func TestHandleWebhookIgnoresUnknownEvents(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{validSignature: "sig-ok"}
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	svc := newTestService(t, gateway, orderSvc)

	body, _ := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment_link": map[string]any{
				"entity": map[string]any{"id": "plink_9"},
			},
		},
	})
	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig-ok"))
	assert.Zero(t, orderSvc.confirmCalls)
	assert.Zero(t, orderSvc.failCalls)
}

func TestVerifyCallback(t *testing.T) {
	t.Parallel()

	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	gateway := &stubGateway{callbackValid: true, fetched: map[string]*razorpay.PaymentLink{
		"plink_1": {ID: "plink_1", Status: razorpay.LinkStatusPaid},
	}}
	svc := newTestService(t, gateway, orderSvc)

	_, err := svc.VerifyCallback(context.Background(), razorpay.CallbackParams{
		PaymentLinkID:     "plink_1",
		PaymentLinkStatus: "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, orderSvc.confirmCalls)

	svc = newTestService(t, &stubGateway{callbackValid: false}, orderSvc)
	_, err = svc.VerifyCallback(context.Background(), razorpay.CallbackParams{
		PaymentLinkID:     "plink_1",
		PaymentLinkStatus: "paid",
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestVerifyCallbackRoutesFailedLink(t *testing.T) {
	t.Parallel()

	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	gateway := &stubGateway{callbackValid: true, fetched: map[string]*razorpay.PaymentLink{
		"plink_1": {ID: "plink_1", Status: razorpay.LinkStatusFailed},
	}}
	svc := newTestService(t, gateway, orderSvc)

	_, err := svc.VerifyCallback(context.Background(), razorpay.CallbackParams{
		PaymentLinkID:     "plink_1",
		PaymentLinkStatus: "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, orderSvc.failCalls)
	assert.Zero(t, orderSvc.confirmCalls)
}

func TestVerifyCallbackTrustsLiveStatusOverQuery(t *testing.T) {
	t.Parallel()

	// client claims paid but the gateway still reports the link open: no
	// transition may run
	orderSvc := &stubOrders{order: pendingOnlineOrder()}
	gateway := &stubGateway{callbackValid: true, fetched: map[string]*razorpay.PaymentLink{
		"plink_1": {ID: "plink_1", Status: razorpay.LinkStatusCreated},
	}}
	svc := newTestService(t, gateway, orderSvc)

	order, err := svc.VerifyCallback(context.Background(), razorpay.CallbackParams{
		PaymentLinkID:     "plink_1",
		PaymentLinkStatus: "paid",
	})
	require.NoError(t, err)
	assert.Zero(t, orderSvc.confirmCalls)
	assert.Zero(t, orderSvc.failCalls)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
