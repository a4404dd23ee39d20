package types

// JSONMap stores loosely structured provider payloads in a jsonb column.
type JSONMap map[string]any

// AddressSnapshot is the denormalized copy of a shipping address frozen onto
// an order at creation time. Edits to the source Address never touch it.
type AddressSnapshot struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}
