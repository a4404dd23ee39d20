package shiprocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), config.ShiprocketConfig{
		Email:          "ops@example.com",
		Password:       "password",
		BaseURL:        server.URL,
		PickupLocation: "Primary",
		TokenTTL:       time.Hour,
		HTTPTimeout:    5 * time.Second,
	}, testLogger())
	require.NoError(t, err)

	return server, client
}

func TestNewClientValidatesCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), config.ShiprocketConfig{}, testLogger())
	require.ErrorIs(t, err, errCredentialsRequired)

	_, err = NewClient(context.Background(), config.ShiprocketConfig{Email: "a@b.c", Password: "pw"}, nil)
	require.ErrorIs(t, err, errLoggerRequired)
}

func TestBearerTokenCached(t *testing.T) {
	var logins int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			atomic.AddInt64(&logins, 1)
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
		case "/settings/company/pickup":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"shipping_address": []any{}}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	_, err := client.PickupLocations(ctx)
	require.NoError(t, err)
	_, err = client.PickupLocations(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&logins))
}

func TestTokenRefreshOnUnauthorized(t *testing.T) {
	var logins int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			n := atomic.AddInt64(&logins, 1)
			token := "tok-1"
			if n > 1 {
				token = "tok-2"
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
		case "/settings/company/pickup":
			if r.Header.Get("Authorization") == "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"shipping_address": []any{}}})
		}
	})

	_, err := client.PickupLocations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&logins))
}

func TestCreateOrder(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case "/orders/create/adhoc":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Primary", body["pickup_location"])
			assert.Equal(t, "COD", body["payment_method"])
			assert.Equal(t, "India", body["billing_country"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"order_id":    411223,
				"shipment_id": 909090,
				"status":      "NEW",
			})
		}
	})

	result, err := client.CreateOrder(context.Background(), OrderParams{
		OrderID:        "order-123",
		OrderDate:      "2026-08-30 10:00",
		BillingName:    "Lalrinsanga",
		BillingPhone:   "9999988888",
		BillingLine1:   "Zarkawt",
		BillingCity:    "Aizawl",
		BillingState:   "Mizoram",
		BillingPincode: "796001",
		PaymentMethod:  "cod",
		WeightKg:       1.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "411223", result.ProviderOrderID)
	assert.Equal(t, "909090", result.ShipmentID)
	assert.Equal(t, "NEW", result.Status)
}

func TestTrackDeliveredShipment(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case "/courier/track/shipment/909090":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"tracking_data": map[string]any{
					"track_status": 1,
					"shipment_track": []map[string]any{{
						"awb_code":       "AWB123",
						"courier_name":   "Delhivery",
						"current_status": "Delivered",
					}},
					"shipment_track_activities": []map[string]any{
						{"date": "2026-08-28", "activity": "Delivered", "location": "Aizawl"},
						{"date": "2026-08-27", "activity": "Out for delivery", "location": "Aizawl"},
					},
				},
			})
		}
	})

	result, err := client.Track(context.Background(), "909090")
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, "AWB123", result.AWB)
	assert.Len(t, result.Events, 2)
}

func TestCancelOrderRejectsBadID(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		}
	})

	err := client.CancelOrder(context.Background(), "not-a-number")
	require.Error(t, err)
}

func TestCheckServiceability(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case "/courier/serviceability/":
			assert.Equal(t, "796001", r.URL.Query().Get("pickup_postcode"))
			assert.Equal(t, "1", r.URL.Query().Get("cod"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"available_courier_companies": []map[string]any{
						{"courier_name": "Delhivery", "rate": 85.5, "etd": "Sep 02, 2026", "cod": 1},
					},
				},
			})
		}
	})

	result, err := client.CheckServiceability(context.Background(), ServiceabilityParams{
		PickupPincode:   "796001",
		DeliveryPincode: "796012",
		WeightKg:        1,
		COD:             true,
	})
	require.NoError(t, err)
	assert.True(t, result.Serviceable)
	require.Len(t, result.Couriers, 1)
	assert.Equal(t, "Delhivery", result.Couriers[0].Name)
	assert.True(t, result.Couriers[0].CODAvailable)
}
