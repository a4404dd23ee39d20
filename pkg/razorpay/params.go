package razorpay

import "strings"

// Payment link lifecycle statuses reported by the gateway.
const (
	LinkStatusCreated   = "created"
	LinkStatusPaid      = "paid"
	LinkStatusCancelled = "cancelled"
	LinkStatusExpired   = "expired"
	LinkStatusFailed    = "failed"
)

// PaymentLinkParams describes the hosted link to create for an order. Amounts
// are in paise, matching the gateway's smallest-unit convention.
type PaymentLinkParams struct {
	AmountPaise   int64
	ReferenceID   string
	Description   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Notes         map[string]string
}

func (p PaymentLinkParams) toRequest(callbackURL string) map[string]interface{} {
	data := map[string]interface{}{
		"amount":       p.AmountPaise,
		"currency":     "INR",
		"reference_id": p.ReferenceID,
		"notify": map[string]interface{}{
			"sms":   true,
			"email": strings.TrimSpace(p.CustomerEmail) != "",
		},
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		data["description"] = desc
	}

	customer := map[string]interface{}{}
	if name := strings.TrimSpace(p.CustomerName); name != "" {
		customer["name"] = name
	}
	if phone := strings.TrimSpace(p.CustomerPhone); phone != "" {
		customer["contact"] = phone
	}
	if email := strings.TrimSpace(p.CustomerEmail); email != "" {
		customer["email"] = email
	}
	if len(customer) > 0 {
		data["customer"] = customer
	}

	if callbackURL != "" {
		data["callback_url"] = callbackURL
		data["callback_method"] = "get"
	}
	if len(p.Notes) > 0 {
		notes := make(map[string]interface{}, len(p.Notes))
		for k, v := range p.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}
	return data
}

// PaymentLink is the subset of the gateway response the service consumes.
type PaymentLink struct {
	ID          string
	ShortURL    string
	Status      string
	ReferenceID string
	AmountPaise int64
}

// CallbackParams carries the redirect query parameters Razorpay appends after a
// customer completes (or abandons) a hosted payment link.
type CallbackParams struct {
	PaymentLinkID          string
	PaymentLinkReferenceID string
	PaymentLinkStatus      string
	PaymentID              string
	Signature              string
}

func parsePaymentLink(resp map[string]interface{}) *PaymentLink {
	link := &PaymentLink{
		ID:          stringField(resp, "id"),
		ShortURL:    stringField(resp, "short_url"),
		Status:      stringField(resp, "status"),
		ReferenceID: stringField(resp, "reference_id"),
	}
	switch amount := resp["amount"].(type) {
	case float64:
		link.AmountPaise = int64(amount)
	case int64:
		link.AmountPaise = amount
	case int:
		link.AmountPaise = int64(amount)
	}
	return link
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
