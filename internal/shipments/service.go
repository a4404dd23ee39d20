// Package shipments bridges confirmed orders to the courier provider. An
// order carries at most one shipment: cancellation is keyed by the provider
// order id, tracking by the shipment id.
package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/internal/notifications"
	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/shiprocket"
	"github.com/AgriNITMZ/agriapp-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput)
}

// Service defines shipment operations.
type Service interface {
	Create(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Shipment, error)
	Track(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*TrackingView, error)
	Cancel(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Shipment, error)
	CheckServiceability(ctx context.Context, params shiprocket.ServiceabilityParams) (*shiprocket.ServiceabilityResult, error)
	PickupLocations(ctx context.Context) ([]shiprocket.PickupLocation, error)
}

// TrackingView combines the persisted shipment with the provider's live scan
// history.
type TrackingView struct {
	Shipment models.Shipment            `json:"shipment"`
	Status   string                     `json:"status"`
	ETD      string                     `json:"etd,omitempty"`
	Events   []shiprocket.TrackingEvent `json:"events"`
}

type service struct {
	provider  shiprocket.Provider
	orderRepo orders.Repository
	tx        txRunner
	notify    notifier
	pickup    string
	logger    *logger.Logger
}

// NewService builds the shipments service.
func NewService(
	provider shiprocket.Provider,
	orderRepo orders.Repository,
	tx txRunner,
	notify notifier,
	pickupLocation string,
	logg *logger.Logger,
) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("courier provider required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pickupLocation == "" {
		pickupLocation = "Primary"
	}
	return &service{
		provider:  provider,
		orderRepo: orderRepo,
		tx:        tx,
		notify:    notify,
		pickup:    pickupLocation,
		logger:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Shipment, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Shipment != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "shipment already exists for order")
	}
	if order.OrderStatus != enums.OrderStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready to ship").
			WithDetails(map[string]any{"status": order.OrderStatus.String()})
	}
	if order.PaymentMethod == enums.PaymentMethodOnline && order.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "online order is not paid yet")
	}

	pickup := s.resolvePickupLocation(ctx)

	result, err := s.provider.CreateOrder(ctx, buildOrderParams(order, pickup))
	if err != nil {
		return nil, err
	}

	shipment := &models.Shipment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ProviderOrderID: result.ProviderOrderID,
		ShipmentID:      result.ShipmentID,
		PickupLocation:  pickup,
		Status:          enums.ShipmentStatusCreated,
		RawPayload:      types.JSONMap(result.Raw),
	}
	if result.AWB != "" {
		shipment.AWB = &result.AWB
	}
	if result.Courier != "" {
		shipment.Courier = &result.Courier
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(shipment).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist shipment")
		}
		return tx.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ?", order.ID).
			UpdateColumn("order_status", enums.OrderStatusShipped).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, notifications.NotifyInput{
		UserID:  order.BuyerID,
		Type:    enums.NotificationTypeShipmentUpdate,
		Title:   "Order shipped",
		Message: "Your order has been handed to the courier.",
		OrderID: &order.ID,
	})
	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "shipment created")
	return shipment, nil
}

// resolvePickupLocation asks the provider for the account's registered pickup
// locations and uses the first one; the configured name covers provider
// outages and empty accounts.
func (s *service) resolvePickupLocation(ctx context.Context) string {
	locations, err := s.provider.PickupLocations(ctx)
	if err != nil {
		s.logger.Warn(ctx, "pickup location lookup failed, using configured fallback")
		return s.pickup
	}
	if len(locations) == 0 || locations[0].Name == "" {
		return s.pickup
	}
	return locations[0].Name
}

func (s *service) Track(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*TrackingView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, order); err != nil {
		return nil, err
	}
	if order.Shipment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order has no shipment")
	}

	tracking, err := s.provider.Track(ctx, order.Shipment.ShipmentID)
	if err != nil {
		return nil, err
	}

	shipment := order.Shipment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     enums.ShipmentStatusTracked,
			"updated_at": time.Now().UTC(),
		}
		if tracking.AWB != "" {
			updates["awb"] = tracking.AWB
		}
		if tracking.Courier != "" {
			updates["courier"] = tracking.Courier
		}
		if err := tx.WithContext(ctx).
			Model(&models.Shipment{}).
			Where("id = ?", shipment.ID).
			Updates(updates).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment tracking")
		}

		if tracking.Delivered && order.OrderStatus != enums.OrderStatusDelivered {
			return tx.WithContext(ctx).
				Model(&models.Order{}).
				Where("id = ?", order.ID).
				UpdateColumn("order_status", enums.OrderStatusDelivered).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	shipment.Status = enums.ShipmentStatusTracked
	if tracking.AWB != "" {
		shipment.AWB = &tracking.AWB
	}
	if tracking.Courier != "" {
		shipment.Courier = &tracking.Courier
	}

	return &TrackingView{
		Shipment: *shipment,
		Status:   tracking.CurrentStatus,
		ETD:      tracking.ETD,
		Events:   tracking.Events,
	}, nil
}

func (s *service) Cancel(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Shipment, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Shipment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order has no shipment")
	}
	if order.OrderStatus == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered shipment cannot be cancelled")
	}
	if order.Shipment.Status == enums.ShipmentStatusCancelled {
		return order.Shipment, nil
	}

	// delivery can race a stale local status, ask the provider first
	if tracking, err := s.provider.Track(ctx, order.Shipment.ShipmentID); err == nil && tracking.Delivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivered shipment cannot be cancelled")
	}

	if err := s.provider.CancelOrder(ctx, order.Shipment.ProviderOrderID); err != nil {
		return nil, err
	}

	shipment := order.Shipment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Model(&models.Shipment{}).
			Where("id = ?", shipment.ID).
			UpdateColumn("status", enums.ShipmentStatusCancelled).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel shipment")
		}
		// shipping is undone, the order returns to the processing queue
		return tx.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ? AND order_status = ?", order.ID, enums.OrderStatusShipped).
			UpdateColumn("order_status", enums.OrderStatusProcessing).Error
	})
	if err != nil {
		return nil, err
	}

	shipment.Status = enums.ShipmentStatusCancelled
	s.notify.Notify(ctx, notifications.NotifyInput{
		UserID:  order.BuyerID,
		Type:    enums.NotificationTypeShipmentUpdate,
		Title:   "Shipment cancelled",
		Message: "The courier shipment for your order was cancelled.",
		OrderID: &order.ID,
	})
	return shipment, nil
}

func (s *service) CheckServiceability(ctx context.Context, params shiprocket.ServiceabilityParams) (*shiprocket.ServiceabilityResult, error) {
	if params.PickupPincode == "" || params.DeliveryPincode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup and delivery pincodes required")
	}
	return s.provider.CheckServiceability(ctx, params)
}

func (s *service) PickupLocations(ctx context.Context) ([]shiprocket.PickupLocation, error) {
	return s.provider.PickupLocations(ctx)
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func buildOrderParams(order *models.Order, pickup string) shiprocket.OrderParams {
	items := make([]shiprocket.OrderItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, shiprocket.OrderItemParams{
			Name:  fmt.Sprintf("%s (%s)", item.Name, item.Size),
			SKU:   item.PriceSizeID.String(),
			Units: item.Quantity,
			Price: item.DiscountedPrice,
		})
	}

	return shiprocket.OrderParams{
		OrderID:        order.ID.String(),
		OrderDate:      order.CreatedAt.Format("2006-01-02 15:04"),
		PickupLocation: pickup,
		BillingName:    order.AddressSnapshot.Name,
		BillingPhone:   order.AddressSnapshot.Phone,
		BillingLine1:   order.AddressSnapshot.Line1,
		BillingLine2:   order.AddressSnapshot.Line2,
		BillingCity:    order.AddressSnapshot.City,
		BillingState:   order.AddressSnapshot.State,
		BillingPincode: order.AddressSnapshot.Pincode,
		Items:          items,
		PaymentMethod:  order.PaymentMethod.String(),
		SubTotal:       order.TotalAmount,
		WeightKg:       0.5,
		LengthCm:       10,
		BreadthCm:      10,
		HeightCm:       10,
	}
}

func requireStaff(actor orders.Actor) error {
	if actor.Role == enums.UserRoleAdmin || actor.Role == enums.UserRoleSeller {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "shipment management requires staff access")
}

func authorizeRead(actor orders.Actor, order *models.Order) error {
	if actor.Role == enums.UserRoleAdmin || actor.Role == enums.UserRoleSeller {
		return nil
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if order.BuyerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return nil
}
