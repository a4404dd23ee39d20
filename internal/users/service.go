// Package users exposes profile reads and updates for authenticated accounts.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/security"
)

// Profile is the public view of a user account.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone *string   `json:"phone,omitempty"`
	Role  string    `json:"role"`
}

// UpdateInput carries editable profile fields.
type UpdateInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ChangePasswordInput carries the credential rotation fields.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Service defines profile operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*Profile, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
}

type service struct {
	db       *gorm.DB
	password config.PasswordConfig
	logger   *logger.Logger
}

// NewService builds the users service.
func NewService(conn *gorm.DB, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: conn, password: passwordCfg, logger: logg}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*Profile, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		user.Phone = &phone
	} else {
		user.Phone = nil
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return toProfile(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if len(input.NewPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password too short").
			WithDetails(map[string]any{"min_length": 8})
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(input.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumn("password_hash", hash).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	s.logger.Info(s.logger.WithUserID(ctx, user.ID.String()), "password changed")
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return &user, nil
}

func toProfile(user *models.User) *Profile {
	return &Profile{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
		Role:  string(user.Role),
	}
}
