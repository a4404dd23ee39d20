package shiprocket

import "github.com/shopspring/decimal"

// OrderItemParams is a single line on a courier order.
type OrderItemParams struct {
	Name     string
	SKU      string
	Units    int
	Price    decimal.Decimal
	Category string
}

// OrderParams describes an adhoc courier order built from an order snapshot.
type OrderParams struct {
	OrderID        string
	OrderDate      string
	PickupLocation string
	BillingName    string
	BillingPhone   string
	BillingLine1   string
	BillingLine2   string
	BillingCity    string
	BillingState   string
	BillingPincode string
	Items          []OrderItemParams
	PaymentMethod  string
	SubTotal       decimal.Decimal
	WeightKg       float64
	LengthCm       float64
	BreadthCm      float64
	HeightCm       float64
}

// OrderResult identifies the created courier order. ProviderOrderID keys
// cancellation; ShipmentID keys tracking.
type OrderResult struct {
	ProviderOrderID string
	ShipmentID      string
	AWB             string
	Courier         string
	Status          string
	Raw             map[string]any
}

// TrackingEvent is one scan in the shipment history.
type TrackingEvent struct {
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Location string `json:"location"`
}

// TrackingResult summarizes the current shipment state.
type TrackingResult struct {
	ShipmentID    string
	AWB           string
	Courier       string
	CurrentStatus string
	Delivered     bool
	ETD           string
	Events        []TrackingEvent
	Raw           map[string]any
}

// ServiceabilityParams is a pickup/delivery pincode pair.
type ServiceabilityParams struct {
	PickupPincode   string
	DeliveryPincode string
	WeightKg        float64
	COD             bool
}

// CourierOption is one available courier for a serviceability check.
type CourierOption struct {
	Name         string
	Rate         decimal.Decimal
	EstimatedETD string
	CODAvailable bool
}

// ServiceabilityResult reports whether any courier serves the lane.
type ServiceabilityResult struct {
	Serviceable bool
	Couriers    []CourierOption
}

// PickupLocation is a registered warehouse address.
type PickupLocation struct {
	ID      int64
	Name    string
	Address string
	City    string
	State   string
	Pincode string
	Phone   string
}
