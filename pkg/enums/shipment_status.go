package enums

import "fmt"

// ShipmentStatus is the tagged fulfillment variant stored on the order's
// shipment sub-record. "none" means no shipment has been requested.
type ShipmentStatus string

const (
	ShipmentStatusNone      ShipmentStatus = "none"
	ShipmentStatusPending   ShipmentStatus = "pending"
	ShipmentStatusCreated   ShipmentStatus = "created"
	ShipmentStatusTracked   ShipmentStatus = "tracked"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusNone,
	ShipmentStatusPending,
	ShipmentStatusCreated,
	ShipmentStatusTracked,
	ShipmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
