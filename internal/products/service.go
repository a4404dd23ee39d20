// Package products manages the catalog: canonical products, seller listings
// and their size variants.
package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines catalog operations.
type Service interface {
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Product, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateWithListing(ctx context.Context, input CreateInput) (*models.Product, error)
	AddVariant(ctx context.Context, input VariantInput) (*models.PriceSize, error)
	UpdateVariant(ctx context.Context, input UpdateVariantInput) (*models.PriceSize, error)
	// ResolveVariant picks the seller listing and size variant an order line
	// refers to. A nil seller resolves to the product's first listing.
	ResolveVariant(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sellerID *uuid.UUID, size string) (*ResolvedVariant, error)
}

// CreateInput creates a product together with the seller's initial listing.
type CreateInput struct {
	SellerID    uuid.UUID
	Name        string
	Category    enums.ProductCategory
	Description *string
	Images      []string
	Variants    []VariantSpec
}

// VariantSpec is one size row on a new listing.
type VariantSpec struct {
	Size            string
	Price           decimal.Decimal
	DiscountedPrice decimal.Decimal
	Quantity        int
}

// VariantInput adds a size variant to an existing listing.
type VariantInput struct {
	SellerID  uuid.UUID
	ProductID uuid.UUID
	Variant   VariantSpec
}

// UpdateVariantInput mutates price or replenishes stock on a variant the
// seller owns.
type UpdateVariantInput struct {
	SellerID        uuid.UUID
	PriceSizeID     uuid.UUID
	Price           *decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Quantity        *int
}

// ResolvedVariant is the intake view of one order line target.
type ResolvedVariant struct {
	ProductName string
	SellerID    uuid.UUID
	Variant     models.PriceSize
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the catalog service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Product, string, error) {
	rows, next, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, next, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) CreateWithListing(ctx context.Context, input CreateInput) (*models.Product, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category")
	}
	if len(input.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one size variant required")
	}
	for _, v := range input.Variants {
		if err := validateVariantSpec(v); err != nil {
			return nil, err
		}
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Category:    input.Category,
		Description: input.Description,
		Images:      pq.StringArray(input.Images),
		IsActive:    true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}

		listing := &models.ProductSeller{
			ID:        uuid.New(),
			ProductID: product.ID,
			SellerID:  input.SellerID,
		}
		for _, v := range input.Variants {
			listing.PriceSizes = append(listing.PriceSizes, models.PriceSize{
				ID:              uuid.New(),
				ProductSellerID: listing.ID,
				Size:            strings.TrimSpace(v.Size),
				Price:           v.Price,
				DiscountedPrice: effectiveDiscounted(v),
				Quantity:        v.Quantity,
			})
		}
		if err := repo.CreateListing(ctx, listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
		}
		product.Sellers = []models.ProductSeller{*listing}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) AddVariant(ctx context.Context, input VariantInput) (*models.PriceSize, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if err := validateVariantSpec(input.Variant); err != nil {
		return nil, err
	}

	var created *models.PriceSize
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindListing(ctx, input.ProductID, input.SellerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				listing = &models.ProductSeller{
					ID:        uuid.New(),
					ProductID: input.ProductID,
					SellerID:  input.SellerID,
				}
				if err := repo.CreateListing(ctx, listing); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
				}
			} else {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
			}
		}

		if _, err := repo.FindVariant(ctx, listing.ID, strings.TrimSpace(input.Variant.Size)); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "size variant already exists")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variant")
		}

		variant := &models.PriceSize{
			ID:              uuid.New(),
			ProductSellerID: listing.ID,
			Size:            strings.TrimSpace(input.Variant.Size),
			Price:           input.Variant.Price,
			DiscountedPrice: effectiveDiscounted(input.Variant),
			Quantity:        input.Variant.Quantity,
		}
		if err := repo.SaveVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save variant")
		}
		created = variant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) UpdateVariant(ctx context.Context, input UpdateVariantInput) (*models.PriceSize, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var updated *models.PriceSize
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		variant, err := repo.FindVariantByID(ctx, input.PriceSizeID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "size variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}

		var listing models.ProductSeller
		if err := tx.WithContext(ctx).Where("id = ?", variant.ProductSellerID).First(&listing).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if listing.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "variant does not belong to seller")
		}

		if input.Price != nil {
			variant.Price = *input.Price
		}
		if input.DiscountedPrice != nil {
			variant.DiscountedPrice = *input.DiscountedPrice
		}
		if input.Quantity != nil {
			variant.Quantity = *input.Quantity
		}
		if err := repo.SaveVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save variant")
		}
		updated = variant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ResolveVariant(ctx context.Context, tx *gorm.DB, productID uuid.UUID, sellerID *uuid.UUID, size string) (*ResolvedVariant, error) {
	repo := s.repo.WithTx(tx)

	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
			WithDetails(map[string]any{"product_id": productID.String()})
	}

	var listing *models.ProductSeller
	if sellerID != nil && *sellerID != uuid.Nil {
		listing, err = repo.FindListing(ctx, productID, *sellerID)
	} else {
		listing, err = repo.FirstListing(ctx, productID)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no seller listing for product").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	variant, err := repo.FindVariant(ctx, listing.ID, strings.TrimSpace(size))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "size not offered by seller").
				WithDetails(map[string]any{"product_id": productID.String(), "size": size})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}

	return &ResolvedVariant{
		ProductName: product.Name,
		SellerID:    listing.SellerID,
		Variant:     *variant,
	}, nil
}

func validateVariantSpec(v VariantSpec) error {
	if strings.TrimSpace(v.Size) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant size required")
	}
	if v.Price.IsNegative() || v.Price.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant price must be positive")
	}
	if v.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant quantity cannot be negative")
	}
	return nil
}

func effectiveDiscounted(v VariantSpec) decimal.Decimal {
	if v.DiscountedPrice.IsPositive() {
		return v.DiscountedPrice
	}
	return v.Price
}
