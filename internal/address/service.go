// Package address manages a buyer's saved delivery addresses. Every mutation
// is ownership-checked; editing an address never rewrites snapshots already
// frozen onto past orders.
package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines address book operations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Get(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	Create(ctx context.Context, input Input) (*models.Address, error)
	Update(ctx context.Context, addressID uuid.UUID, input Input) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
}

// Input carries address fields for create and update.
type Input struct {
	UserID    uuid.UUID
	Name      string
	Phone     string
	Line1     string
	Line2     *string
	City      string
	State     string
	Pincode   string
	IsDefault bool
}

type service struct {
	db *gorm.DB
	tx txRunner
}

// NewService builds the address service.
func NewService(db *gorm.DB, tx txRunner) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("address db required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{db: db, tx: tx}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var rows []models.Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	return s.loadOwned(ctx, s.db, userID, addressID)
}

func (s *service) Create(ctx context.Context, input Input) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	addr := &models.Address{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Name:      strings.TrimSpace(input.Name),
		Phone:     strings.TrimSpace(input.Phone),
		Line1:     strings.TrimSpace(input.Line1),
		Line2:     input.Line2,
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Pincode:   strings.TrimSpace(input.Pincode),
		IsDefault: input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if addr.IsDefault {
			if err := clearDefault(ctx, tx, input.UserID); err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Create(addr).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (s *service) Update(ctx context.Context, addressID uuid.UUID, input Input) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		addr, err := s.loadOwned(ctx, tx, input.UserID, addressID)
		if err != nil {
			return err
		}

		addr.Name = strings.TrimSpace(input.Name)
		addr.Phone = strings.TrimSpace(input.Phone)
		addr.Line1 = strings.TrimSpace(input.Line1)
		addr.Line2 = input.Line2
		addr.City = strings.TrimSpace(input.City)
		addr.State = strings.TrimSpace(input.State)
		addr.Pincode = strings.TrimSpace(input.Pincode)

		if input.IsDefault && !addr.IsDefault {
			if err := clearDefault(ctx, tx, input.UserID); err != nil {
				return err
			}
			addr.IsDefault = true
		}

		if err := tx.WithContext(ctx).Save(addr).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		updated = addr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadOwned(ctx, tx, userID, addressID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(&models.Address{}, "id = ?", addressID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
		}
		return nil
	})
}

func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		addr, err := s.loadOwned(ctx, tx, userID, addressID)
		if err != nil {
			return err
		}
		if addr.IsDefault {
			return nil
		}
		if err := clearDefault(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Model(&models.Address{}).
			Where("id = ?", addressID).
			UpdateColumn("is_default", true).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default address")
		}
		return nil
	})
}

func (s *service) loadOwned(ctx context.Context, db *gorm.DB, userID, addressID uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}

	var addr models.Address
	err := db.WithContext(ctx).Where("id = ?", addressID).First(&addr).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
	}
	return &addr, nil
}

func clearDefault(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	err := tx.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		UpdateColumn("is_default", false).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
	}
	return nil
}

func validateInput(input Input) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	missing := []string{}
	for field, value := range map[string]string{
		"name":    input.Name,
		"phone":   input.Phone,
		"line1":   input.Line1,
		"city":    input.City,
		"state":   input.State,
		"pincode": input.Pincode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address fields missing").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}
