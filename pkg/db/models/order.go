package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	"github.com/AgriNITMZ/agriapp-backend/pkg/types"
)

// Order is the single purchase aggregate. It snapshots items and the shipping
// address at creation, and carries an optional Shipment sub-record once a
// provider order exists. StockAdjusted is the idempotency flag guarding stock
// deduction: webhooks are delivered at least once, so it is set exactly once
// inside the same transaction that decrements stock.
type Order struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID               uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null;index"`
	TotalAmount           decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentMethod         enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus         enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'Pending'"`
	OrderStatus           enums.OrderStatus     `gorm:"column:order_status;type:text;not null;default:'Pending'"`
	AddressID             uuid.UUID             `gorm:"column:address_id;type:uuid;not null"`
	AddressSnapshot       types.AddressSnapshot `gorm:"column:address_snapshot;type:jsonb;serializer:json"`
	RazorpayPaymentLinkID *string               `gorm:"column:razorpay_payment_link_id;index"`
	StockAdjusted         bool                  `gorm:"column:stock_adjusted;not null;default:false"`
	Items                 []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipment              *Shipment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is the per-line snapshot captured at intake. PriceSizeID points at
// the exact seller size variant so stock reconciliation can target it later.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SellerID        uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	PriceSizeID     uuid.UUID       `gorm:"column:price_size_id;type:uuid;not null"`
	Name            string          `gorm:"column:name;not null"`
	Size            string          `gorm:"column:size;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Shipment is the provider-side fulfillment record for an order. ProviderOrderID
// and ShipmentID are distinct identifiers: cancellation is keyed by the former,
// tracking by the latter.
type Shipment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ProviderOrderID string               `gorm:"column:provider_order_id;not null"`
	ShipmentID      string               `gorm:"column:shipment_id;not null"`
	AWB             *string              `gorm:"column:awb"`
	Courier         *string              `gorm:"column:courier"`
	PickupLocation  string               `gorm:"column:pickup_location;not null"`
	Status          enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'none'"`
	RawPayload      types.JSONMap        `gorm:"column:raw_payload;type:jsonb;serializer:json"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
