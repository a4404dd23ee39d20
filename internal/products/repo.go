package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

// Repository exposes catalog persistence. Listing resolution (product ->
// seller -> size variant) backs both catalog reads and order intake.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Product, string, error)

	FindListing(ctx context.Context, productID, sellerID uuid.UUID) (*models.ProductSeller, error)
	FirstListing(ctx context.Context, productID uuid.UUID) (*models.ProductSeller, error)
	CreateListing(ctx context.Context, listing *models.ProductSeller) error

	FindVariant(ctx context.Context, listingID uuid.UUID, size string) (*models.PriceSize, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.PriceSize, error)
	SaveVariant(ctx context.Context, variant *models.PriceSize) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
}

// ListFilter narrows catalog listing.
type ListFilter struct {
	Category *enums.ProductCategory
	SellerID *uuid.UUID
	Search   string
	// IncludeInactive is reserved for admin views; public reads keep it false.
	IncludeInactive bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Sellers.PriceSizes").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Product, string, error) {
	limit := pagination.NormalizeLimit(page.Limit)

	query := r.db.WithContext(ctx).
		Preload("Sellers.PriceSizes").
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.SellerID != nil {
		query = query.Where(
			"id IN (?)",
			r.db.Model(&models.ProductSeller{}).Select("product_id").Where("seller_id = ?", *filter.SellerID),
		)
	}

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (r *repository) FindListing(ctx context.Context, productID, sellerID uuid.UUID) (*models.ProductSeller, error) {
	var listing models.ProductSeller
	err := r.db.WithContext(ctx).
		Preload("PriceSizes").
		Where("product_id = ? AND seller_id = ?", productID, sellerID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FirstListing(ctx context.Context, productID uuid.UUID) (*models.ProductSeller, error) {
	var listing models.ProductSeller
	err := r.db.WithContext(ctx).
		Preload("PriceSizes").
		Where("product_id = ?", productID).
		Order("created_at ASC").
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) CreateListing(ctx context.Context, listing *models.ProductSeller) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindVariant(ctx context.Context, listingID uuid.UUID, size string) (*models.PriceSize, error) {
	var variant models.PriceSize
	err := r.db.WithContext(ctx).
		Where("product_seller_id = ? AND size = ?", listingID, size).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.PriceSize, error) {
	var variant models.PriceSize
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) SaveVariant(ctx context.Context, variant *models.PriceSize) error {
	return r.db.WithContext(ctx).Save(variant).Error
}

func (r *repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PriceSize{}, "id = ?", id).Error
}
