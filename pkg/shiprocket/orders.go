package shiprocket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CreateOrder registers an adhoc order with the courier.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*OrderResult, error) {
	pickup := strings.TrimSpace(params.PickupLocation)
	if pickup == "" {
		pickup = c.pickup
	}

	items := make([]map[string]any, 0, len(params.Items))
	for _, item := range params.Items {
		items = append(items, map[string]any{
			"name":          item.Name,
			"sku":           item.SKU,
			"units":         item.Units,
			"selling_price": item.Price.InexactFloat64(),
			"category":      item.Category,
		})
	}

	body := map[string]any{
		"order_id":              params.OrderID,
		"order_date":            params.OrderDate,
		"pickup_location":       pickup,
		"billing_customer_name": params.BillingName,
		"billing_last_name":     "",
		"billing_address":       params.BillingLine1,
		"billing_address_2":     params.BillingLine2,
		"billing_city":          params.BillingCity,
		"billing_pincode":       params.BillingPincode,
		"billing_state":         params.BillingState,
		"billing_country":       "India",
		"billing_phone":         params.BillingPhone,
		"shipping_is_billing":   true,
		"order_items":           items,
		"payment_method":        paymentMethodLabel(params.PaymentMethod),
		"sub_total":             params.SubTotal.InexactFloat64(),
		"length":                params.LengthCm,
		"breadth":               params.BreadthCm,
		"height":                params.HeightCm,
		"weight":                params.WeightKg,
	}

	c.log(ctx, "request", "create_order", map[string]any{"order_id": params.OrderID})

	var resp struct {
		OrderID     int64  `json:"order_id"`
		ShipmentID  int64  `json:"shipment_id"`
		Status      string `json:"status"`
		AWBCode     string `json:"awb_code"`
		CourierName string `json:"courier_name"`
	}
	var raw map[string]any
	if err := c.do(ctx, "POST", "/orders/create/adhoc", body, &raw); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, err
	}
	decodeInto(raw, &resp)

	result := &OrderResult{
		ProviderOrderID: strconv.FormatInt(resp.OrderID, 10),
		ShipmentID:      strconv.FormatInt(resp.ShipmentID, 10),
		AWB:             resp.AWBCode,
		Courier:         resp.CourierName,
		Status:          resp.Status,
		Raw:             raw,
	}
	c.log(ctx, "response", "create_order", map[string]any{
		"provider_order_id": result.ProviderOrderID,
		"shipment_id":       result.ShipmentID,
	})
	return result, nil
}

// CancelOrder cancels a courier order by its provider order id.
func (c *Client) CancelOrder(ctx context.Context, providerOrderID string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(providerOrderID), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid provider order id %q: %w", providerOrderID, err)
	}

	c.log(ctx, "request", "cancel_order", map[string]any{"provider_order_id": providerOrderID})
	if err := c.do(ctx, "POST", "/orders/cancel", map[string]any{"ids": []int64{id}}, nil); err != nil {
		c.log(ctx, "error", "cancel_order", map[string]any{"error": err.Error()})
		return err
	}
	c.log(ctx, "response", "cancel_order", map[string]any{"provider_order_id": providerOrderID})
	return nil
}

// PickupLocations lists the registered warehouses.
func (c *Client) PickupLocations(ctx context.Context) ([]PickupLocation, error) {
	var resp struct {
		Data struct {
			ShippingAddress []struct {
				ID       int64  `json:"id"`
				Name     string `json:"pickup_location"`
				Address  string `json:"address"`
				City     string `json:"city"`
				State    string `json:"state"`
				PinCode  string `json:"pin_code"`
				Phone    string `json:"phone"`
			} `json:"shipping_address"`
		} `json:"data"`
	}
	if err := c.do(ctx, "GET", "/settings/company/pickup", nil, &resp); err != nil {
		return nil, err
	}

	locations := make([]PickupLocation, 0, len(resp.Data.ShippingAddress))
	for _, addr := range resp.Data.ShippingAddress {
		locations = append(locations, PickupLocation{
			ID:      addr.ID,
			Name:    addr.Name,
			Address: addr.Address,
			City:    addr.City,
			State:   addr.State,
			Pincode: addr.PinCode,
			Phone:   addr.Phone,
		})
	}
	return locations, nil
}

// CheckServiceability asks which couriers serve a pickup/delivery lane.
func (c *Client) CheckServiceability(ctx context.Context, params ServiceabilityParams) (*ServiceabilityResult, error) {
	query := url.Values{}
	query.Set("pickup_postcode", params.PickupPincode)
	query.Set("delivery_postcode", params.DeliveryPincode)
	query.Set("weight", strconv.FormatFloat(params.WeightKg, 'f', -1, 64))
	if params.COD {
		query.Set("cod", "1")
	} else {
		query.Set("cod", "0")
	}

	var resp struct {
		Data struct {
			AvailableCourierCompanies []struct {
				CourierName  string  `json:"courier_name"`
				Rate         float64 `json:"rate"`
				ETD          string  `json:"etd"`
				CODAvailable int     `json:"cod"`
			} `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := c.do(ctx, "GET", "/courier/serviceability/?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	result := &ServiceabilityResult{
		Serviceable: len(resp.Data.AvailableCourierCompanies) > 0,
	}
	for _, courier := range resp.Data.AvailableCourierCompanies {
		result.Couriers = append(result.Couriers, CourierOption{
			Name:         courier.CourierName,
			Rate:         floatToDecimal(courier.Rate),
			EstimatedETD: courier.ETD,
			CODAvailable: courier.CODAvailable == 1,
		})
	}
	return result, nil
}

func paymentMethodLabel(method string) string {
	if strings.EqualFold(strings.TrimSpace(method), "cod") {
		return "COD"
	}
	return "Prepaid"
}
