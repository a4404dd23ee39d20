package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
)

// Product is the canonical catalog entry. Pricing and stock live on the
// seller-scoped listings underneath it.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Category    enums.ProductCategory `gorm:"column:category;type:text;not null;default:'other'"`
	Description *string               `gorm:"column:description"`
	Images      pq.StringArray        `gorm:"column:images;type:text[]"`
	IsActive    bool                  `gorm:"column:is_active;not null;default:true"`
	Sellers     []ProductSeller       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductSeller links a seller to a product and owns its price/size table.
type ProductSeller struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID   `gorm:"column:product_id;type:uuid;not null;index:idx_product_seller,unique"`
	SellerID   uuid.UUID   `gorm:"column:seller_id;type:uuid;not null;index:idx_product_seller,unique"`
	PriceSizes []PriceSize `gorm:"foreignKey:ProductSellerID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceSize is one size variant of a seller listing. Quantity is the only
// contended mutable field in the system; it is decremented exclusively by the
// stock reconciliation transaction and must never go negative.
type PriceSize struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductSellerID uuid.UUID       `gorm:"column:product_seller_id;type:uuid;not null;index"`
	Size            string          `gorm:"column:size;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
