// Package orders implements order intake and its lifecycle transitions.
// Stock reconciliation is transactional: the StockAdjusted flag flips in the
// same transaction that moves inventory, so at-least-once payment webhooks
// can never double-decrement.
package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/internal/cart"
	"github.com/AgriNITMZ/agriapp-backend/internal/notifications"
	"github.com/AgriNITMZ/agriapp-backend/internal/products"
	"github.com/AgriNITMZ/agriapp-backend/internal/stock"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/metrics"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
	"github.com/AgriNITMZ/agriapp-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type variantResolver interface {
	ResolveVariant(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sellerID *uuid.UUID, size string) (*products.ResolvedVariant, error)
}

type notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput)
}

// Service defines order operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)

	// Payment transitions, driven by the payments service.
	AttachPaymentLink(ctx context.Context, orderID uuid.UUID, linkID string) error
	ConfirmPayment(ctx context.Context, linkID string) (*models.Order, error)
	FailPayment(ctx context.Context, linkID string) (*models.Order, error)
	FindByPaymentLink(ctx context.Context, linkID string) (*models.Order, error)
}

// Actor identifies who is acting on an order.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// LineInput is one requested order line. A nil SellerID resolves to the
// product's first listing.
type LineInput struct {
	ProductID uuid.UUID
	SellerID  *uuid.UUID
	Size      string
	Quantity  int
}

// CreateInput starts an order either from explicit lines or from the buyer's
// cart.
type CreateInput struct {
	BuyerID       uuid.UUID
	AddressID     uuid.UUID
	PaymentMethod enums.PaymentMethod
	Items         []LineInput
	FromCart      bool
}

// ListParams configures buyer order listing.
type ListParams struct {
	BuyerID uuid.UUID
	Limit   int
	Cursor  string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

type service struct {
	repo     Repository
	tx       txRunner
	catalog  variantResolver
	cartRepo cart.Repository
	notify   notifier
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewService builds the orders service.
func NewService(
	repo Repository,
	tx txRunner,
	catalog variantResolver,
	cartRepo cart.Repository,
	notify notifier,
	registry *metrics.Registry,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("variant resolver required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		catalog:  catalog,
		cartRepo: cartRepo,
		notify:   notify,
		metrics:  registry,
		logger:   logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.FromCart && len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order items required")
	}

	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       input.BuyerID,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: enums.PaymentStatusPending,
		OrderStatus:   enums.OrderStatusPending,
		AddressID:     input.AddressID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		snapshot, err := s.snapshotAddress(ctx, tx, input.BuyerID, input.AddressID)
		if err != nil {
			return err
		}
		order.AddressSnapshot = *snapshot

		lines := input.Items
		if input.FromCart {
			lines, err = s.cartLines(ctx, tx, input.BuyerID)
			if err != nil {
				return err
			}
		}

		total := decimal.Zero
		var lineErrs error
		lineDetails := map[string]any{}
		for i, line := range lines {
			if line.Quantity <= 0 {
				if !input.FromCart {
					return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
				}
				lineErrs = multierr.Append(lineErrs, fmt.Errorf("item %d: quantity must be positive", i))
				lineDetails[line.ProductID.String()] = "quantity must be positive"
				continue
			}
			resolved, err := s.catalog.ResolveVariant(ctx, tx, line.ProductID, line.SellerID, line.Size)
			if err != nil {
				// cart mode validates every line so the buyer sees all
				// problems at once; direct orders fail on the first
				if !input.FromCart {
					return err
				}
				lineErrs = multierr.Append(lineErrs, err)
				if domainErr := pkgerrors.As(err); domainErr != nil {
					lineDetails[line.ProductID.String()] = domainErr.Message()
				} else {
					lineDetails[line.ProductID.String()] = err.Error()
				}
				continue
			}
			item := models.OrderItem{
				ID:              uuid.New(),
				OrderID:         order.ID,
				ProductID:       line.ProductID,
				SellerID:        resolved.SellerID,
				PriceSizeID:     resolved.Variant.ID,
				Name:            resolved.ProductName,
				Size:            resolved.Variant.Size,
				Price:           resolved.Variant.Price,
				DiscountedPrice: resolved.Variant.DiscountedPrice,
				Quantity:        line.Quantity,
			}
			order.Items = append(order.Items, item)
			total = total.Add(resolved.Variant.DiscountedPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		if lineErrs != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, lineErrs, "cart contains invalid items").
				WithDetails(lineDetails)
		}
		order.TotalAmount = total

		adjustments := stock.LinesFromOrderItems(order.Items)
		switch input.PaymentMethod {
		case enums.PaymentMethodCOD:
			// COD confirms immediately: deduct now, flag in the same tx
			if err := stock.Deduct(ctx, tx, adjustments); err != nil {
				s.metrics.IncStockFailure()
				return err
			}
			order.StockAdjusted = true
			order.OrderStatus = enums.OrderStatusProcessing
		default:
			// online orders hold stock only after payment confirms, but
			// reject obviously unfillable orders up front
			if err := stock.EnsureAvailable(ctx, tx, adjustments); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if input.FromCart {
			if err := s.cartRepo.WithTx(tx).Clear(ctx, input.BuyerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated(order.PaymentMethod.String())
	s.notify.Notify(ctx, notifications.NotifyInput{
		UserID:  order.BuyerID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order for %d item(s) has been placed.", len(order.Items)),
		OrderID: &order.ID,
	})
	s.logger.Info(s.logger.WithOrderID(ctx, order.ID.String()), "order created")
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}

	query := listOrdersParams{BuyerID: params.BuyerID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByBuyer(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := authorize(actor, order); err != nil {
			return err
		}

		switch order.OrderStatus {
		case enums.OrderStatusCancelled:
			cancelled = order
			return nil
		case enums.OrderStatusShipped, enums.OrderStatusDelivered:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already shipped").
				WithDetails(map[string]any{"status": order.OrderStatus.String()})
		}

		if order.StockAdjusted {
			if err := stock.Restore(ctx, tx, stock.LinesFromOrderItems(order.Items)); err != nil {
				return err
			}
			order.StockAdjusted = false
		}
		order.OrderStatus = enums.OrderStatusCancelled

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, notifications.NotifyInput{
		UserID:  cancelled.BuyerID,
		Type:    enums.NotificationTypeOrderCancelled,
		Title:   "Order cancelled",
		Message: "Your order has been cancelled and any reserved stock was released.",
		OrderID: &cancelled.ID,
	})
	return cancelled, nil
}

func (s *service) AttachPaymentLink(ctx context.Context, orderID uuid.UUID, linkID string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(linkID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment link id required")
	}
	if err := s.repo.SetPaymentLink(ctx, orderID, linkID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment link")
	}
	return nil
}

// ConfirmPayment marks the order paid and reconciles stock exactly once.
// Replayed webhooks hit the StockAdjusted/PaymentStatus short-circuits and
// return without touching inventory.
func (s *service) ConfirmPayment(ctx context.Context, linkID string) (*models.Order, error) {
	var confirmed *models.Order
	notifyBuyer := false

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadByLink(ctx, repo, linkID)
		if err != nil {
			return err
		}

		if order.PaymentStatus == enums.PaymentStatusCompleted || order.OrderStatus == enums.OrderStatusCancelled {
			confirmed = order
			return nil
		}

		order.PaymentStatus = enums.PaymentStatusCompleted
		if order.OrderStatus == enums.OrderStatusPending {
			order.OrderStatus = enums.OrderStatusProcessing
		}

		if !order.StockAdjusted {
			if err := stock.Deduct(ctx, tx, stock.LinesFromOrderItems(order.Items)); err != nil {
				s.metrics.IncStockFailure()
				return err
			}
			order.StockAdjusted = true
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}
		confirmed = order
		notifyBuyer = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyBuyer {
		s.notify.Notify(ctx, notifications.NotifyInput{
			UserID:  confirmed.BuyerID,
			Type:    enums.NotificationTypePaymentConfirmed,
			Title:   "Payment received",
			Message: "Payment for your order is confirmed. It is now being processed.",
			OrderID: &confirmed.ID,
		})
	}
	return confirmed, nil
}

// FailPayment records a failed or abandoned payment link. Completed and
// cancelled orders are left untouched.
func (s *service) FailPayment(ctx context.Context, linkID string) (*models.Order, error) {
	var failed *models.Order
	notifyBuyer := false

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadByLink(ctx, repo, linkID)
		if err != nil {
			return err
		}

		if order.PaymentStatus == enums.PaymentStatusCompleted ||
			order.OrderStatus == enums.OrderStatusCancelled ||
			order.PaymentStatus == enums.PaymentStatusFailed {
			failed = order
			return nil
		}

		order.PaymentStatus = enums.PaymentStatusFailed
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
		}
		failed = order
		notifyBuyer = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyBuyer {
		s.notify.Notify(ctx, notifications.NotifyInput{
			UserID:  failed.BuyerID,
			Type:    enums.NotificationTypePaymentFailed,
			Title:   "Payment failed",
			Message: "Payment for your order did not complete. You can retry from your orders page.",
			OrderID: &failed.ID,
		})
	}
	return failed, nil
}

// FindByPaymentLink looks the order up without transitioning it.
func (s *service) FindByPaymentLink(ctx context.Context, linkID string) (*models.Order, error) {
	return s.loadByLink(ctx, s.repo, linkID)
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadByLink(ctx context.Context, repo Repository, linkID string) (*models.Order, error) {
	if strings.TrimSpace(linkID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment link id required")
	}
	order, err := repo.FindByPaymentLinkID(ctx, linkID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment link")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by payment link")
	}
	return order, nil
}

func (s *service) snapshotAddress(ctx context.Context, tx *gorm.DB, buyerID, addressID uuid.UUID) (*types.AddressSnapshot, error) {
	var addr models.Address
	err := tx.WithContext(ctx).Where("id = ?", addressID).First(&addr).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr.UserID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to buyer")
	}

	line2 := ""
	if addr.Line2 != nil {
		line2 = *addr.Line2
	}
	return &types.AddressSnapshot{
		Name:    addr.Name,
		Phone:   addr.Phone,
		Line1:   addr.Line1,
		Line2:   line2,
		City:    addr.City,
		State:   addr.State,
		Pincode: addr.Pincode,
	}, nil
}

func (s *service) cartLines(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) ([]LineInput, error) {
	items, err := s.cartRepo.WithTx(tx).ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineInput{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

func authorize(actor Actor, order *models.Order) error {
	if actor.Role == enums.UserRoleAdmin {
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
