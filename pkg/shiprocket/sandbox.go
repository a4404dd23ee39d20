package shiprocket

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/shopspring/decimal"
)

// Sandbox is a deterministic in-process Provider used when no courier
// credentials are configured. It keeps development and tests independent of
// the external API.
type Sandbox struct {
	PickupLocation string
}

// NewSandbox returns a Provider with synthetic responses.
func NewSandbox(pickupLocation string) *Sandbox {
	if pickupLocation == "" {
		pickupLocation = "Primary"
	}
	return &Sandbox{PickupLocation: pickupLocation}
}

func syntheticID(seed string, offset uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()%90000000 + 10000000 + offset
}

func (s *Sandbox) CreateOrder(_ context.Context, params OrderParams) (*OrderResult, error) {
	return &OrderResult{
		ProviderOrderID: fmt.Sprintf("%d", syntheticID(params.OrderID, 0)),
		ShipmentID:      fmt.Sprintf("%d", syntheticID(params.OrderID, 1)),
		AWB:             fmt.Sprintf("SBX%d", syntheticID(params.OrderID, 2)),
		Courier:         "Sandbox Courier",
		Status:          "NEW",
	}, nil
}

func (s *Sandbox) Track(_ context.Context, shipmentID string) (*TrackingResult, error) {
	return &TrackingResult{
		ShipmentID:    shipmentID,
		AWB:           fmt.Sprintf("SBX%s", shipmentID),
		Courier:       "Sandbox Courier",
		CurrentStatus: "In Transit",
		Events: []TrackingEvent{
			{Date: "2026-01-01", Activity: "Picked up", Location: "Origin hub"},
			{Date: "2026-01-02", Activity: "In transit", Location: "Sorting facility"},
		},
	}, nil
}

func (s *Sandbox) CancelOrder(_ context.Context, providerOrderID string) error {
	if providerOrderID == "" {
		return fmt.Errorf("provider order id is required")
	}
	return nil
}

func (s *Sandbox) CheckServiceability(_ context.Context, params ServiceabilityParams) (*ServiceabilityResult, error) {
	return &ServiceabilityResult{
		Serviceable: true,
		Couriers: []CourierOption{{
			Name:         "Sandbox Courier",
			Rate:         decimal.NewFromInt(80),
			EstimatedETD: "3 days",
			CODAvailable: params.COD,
		}},
	}, nil
}

func (s *Sandbox) PickupLocations(_ context.Context) ([]PickupLocation, error) {
	return []PickupLocation{{
		ID:      1,
		Name:    s.PickupLocation,
		Address: "Sandbox warehouse",
		City:    "Aizawl",
		State:   "Mizoram",
		Pincode: "796001",
	}}, nil
}
