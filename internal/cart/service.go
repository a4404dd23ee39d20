// Package cart holds pending order lines per buyer. The cart stores no
// prices; pricing is resolved fresh at checkout.
package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
)

const maxLineQuantity = 100

// Service defines cart operations.
type Service interface {
	List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	Add(ctx context.Context, input AddInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	Remove(ctx context.Context, buyerID, itemID uuid.UUID) error
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

// AddInput adds or merges one cart line.
type AddInput struct {
	BuyerID   uuid.UUID
	ProductID uuid.UUID
	SellerID  *uuid.UUID
	Size      string
	Quantity  int
}

type service struct {
	repo Repository
}

// NewService builds the cart service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	items, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return items, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.CartItem, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	size := strings.TrimSpace(input.Size)
	if size == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size required")
	}
	if err := validateQuantity(input.Quantity); err != nil {
		return nil, err
	}

	// same product/seller/size merges into one line
	existing, err := s.repo.FindLine(ctx, input.BuyerID, input.ProductID, input.SellerID, size)
	if err == nil {
		existing.Quantity += input.Quantity
		if existing.Quantity > maxLineQuantity {
			existing.Quantity = maxLineQuantity
		}
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	item := &models.CartItem{
		ID:        uuid.New(),
		BuyerID:   input.BuyerID,
		ProductID: input.ProductID,
		SellerID:  input.SellerID,
		Size:      size,
		Quantity:  input.Quantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
	}
	return item, nil
}

func (s *service) UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			if err := s.repo.Save(ctx, &items[i]); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
			return &items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (s *service) Remove(ctx context.Context, buyerID, itemID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	affected, err := s.repo.Delete(ctx, buyerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if err := s.repo.Clear(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if quantity > maxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity cannot exceed %d", maxLineQuantity))
	}
	return nil
}
