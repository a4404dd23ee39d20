package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem holds one pending line in a buyer's cart. SellerID may be nil when
// the buyer has not picked a specific seller, in which case intake resolves
// the first listed seller.
type CartItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	SellerID  *uuid.UUID `gorm:"column:seller_id;type:uuid"`
	Size      string     `gorm:"column:size;not null"`
	Quantity  int        `gorm:"column:quantity;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
