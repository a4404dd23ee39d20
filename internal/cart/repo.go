package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
)

// Repository exposes cart persistence. Order intake reads the cart inside its
// own transaction via WithTx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	FindLine(ctx context.Context, buyerID, productID uuid.UUID, sellerID *uuid.UUID, size string) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	Save(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, buyerID, itemID uuid.UUID) (int64, error)
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindLine(ctx context.Context, buyerID, productID uuid.UUID, sellerID *uuid.UUID, size string) (*models.CartItem, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ? AND size = ?", buyerID, productID, size)
	if sellerID == nil {
		query = query.Where("seller_id IS NULL")
	} else {
		query = query.Where("seller_id = ?", *sellerID)
	}

	var item models.CartItem
	if err := query.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, buyerID, itemID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&models.CartItem{}, "id = ?", itemID)
	return result.RowsAffected, result.Error
}

func (r *repository) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "buyer_id = ?", buyerID).Error
}
