package shiprocket

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Track fetches the scan history for a shipment by its shipment id.
func (c *Client) Track(ctx context.Context, shipmentID string) (*TrackingResult, error) {
	id := strings.TrimSpace(shipmentID)
	c.log(ctx, "request", "track_shipment", map[string]any{"shipment_id": id})

	var raw map[string]any
	if err := c.do(ctx, "GET", "/courier/track/shipment/"+url.PathEscape(id), nil, &raw); err != nil {
		c.log(ctx, "error", "track_shipment", map[string]any{"error": err.Error()})
		return nil, err
	}

	var resp struct {
		TrackingData struct {
			TrackStatus int `json:"track_status"`
			ShipmentTrack []struct {
				AWBCode       string `json:"awb_code"`
				CourierName   string `json:"courier_name"`
				CurrentStatus string `json:"current_status"`
				EDD           string `json:"edd"`
			} `json:"shipment_track"`
			ShipmentTrackActivities []struct {
				Date     string `json:"date"`
				Activity string `json:"activity"`
				Location string `json:"location"`
			} `json:"shipment_track_activities"`
		} `json:"tracking_data"`
	}
	decodeInto(raw, &resp)

	result := &TrackingResult{ShipmentID: id, Raw: raw}
	if tracks := resp.TrackingData.ShipmentTrack; len(tracks) > 0 {
		result.AWB = tracks[0].AWBCode
		result.Courier = tracks[0].CourierName
		result.CurrentStatus = tracks[0].CurrentStatus
		result.ETD = tracks[0].EDD
		result.Delivered = strings.EqualFold(tracks[0].CurrentStatus, "delivered")
	}
	for _, activity := range resp.TrackingData.ShipmentTrackActivities {
		result.Events = append(result.Events, TrackingEvent{
			Date:     activity.Date,
			Activity: activity.Activity,
			Location: activity.Location,
		})
	}

	c.log(ctx, "response", "track_shipment", map[string]any{
		"shipment_id": id,
		"status":      result.CurrentStatus,
	})
	return result, nil
}

// decodeInto re-marshals a generic JSON map into a typed struct. Errors are
// ignored; absent fields simply stay zero-valued.
func decodeInto(raw map[string]any, out any) {
	if raw == nil {
		return
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return
	}
	_ = json.Unmarshal(payload, out)
}

func floatToDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
