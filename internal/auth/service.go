// Package auth implements registration and login. Passwords are hashed with
// argon2id; successful logins mint an HS256 access token carrying the user id
// and role. Login and registration attempts are rate limited per email and
// per client IP.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/auth"
	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/security"
)

const minPasswordLength = 8

// rateLimiter applies a fixed-window counter per scope.
type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RegisterInput carries signup fields plus the client IP for rate limiting.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
	ClientIP string `json:"-"`
}

// LoginInput carries credential fields plus the client IP for rate limiting.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ClientIP string `json:"-"`
}

// Session is the authenticated result returned to clients.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	UserID    uuid.UUID      `json:"user_id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
}

// Service defines authentication operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, input LoginInput) (*Session, error)
}

type service struct {
	db       *gorm.DB
	limiter  rateLimiter
	jwt      config.JWTConfig
	password config.PasswordConfig
	limits   config.AuthRateLimitConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds the auth service. limiter may be nil, disabling rate
// limiting.
func NewService(
	conn *gorm.DB,
	limiter rateLimiter,
	jwtCfg config.JWTConfig,
	passwordCfg config.PasswordConfig,
	limits config.AuthRateLimitConfig,
	logg *logger.Logger,
) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       conn,
		limiter:  limiter,
		jwt:      jwtCfg,
		password: passwordCfg,
		limits:   limits,
		logger:   logg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := validateRegister(input); err != nil {
		return nil, err
	}

	if err := s.allowRegister(ctx, input); err != nil {
		return nil, err
	}

	role := enums.UserRoleBuyer
	if input.Role != "" {
		parsed, err := enums.ParseUserRole(input.Role)
		if err != nil || parsed == enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
				WithDetails(map[string]any{"allowed": []string{"buyer", "seller"}})
		}
		role = parsed
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		user.Phone = &phone
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logger.Info(s.logger.WithUserID(ctx, user.ID.String()), "user registered")
	return s.mintSession(user)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	if err := s.allowLogin(ctx, input); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return s.mintSession(&user)
}

func (s *service) allowLogin(ctx context.Context, input LoginInput) error {
	return s.allowAttempt(ctx, "login", input.Email, input.ClientIP,
		s.limits.LoginWindow, s.limits.LoginEmailLimit, s.limits.LoginIPLimit,
		"too many login attempts")
}

func (s *service) allowRegister(ctx context.Context, input RegisterInput) error {
	return s.allowAttempt(ctx, "register", input.Email, input.ClientIP,
		s.limits.RegisterWindow, s.limits.RegisterEmailLimit, s.limits.RegisterIPLimit,
		"too many registration attempts")
}

// allowAttempt checks the per-email and per-IP windows for one action. A
// limiter outage fails open: losing rate limiting is preferable to locking
// users out.
func (s *service) allowAttempt(ctx context.Context, action, email, clientIP string, window time.Duration, emailLimit, ipLimit int, message string) error {
	if s.limiter == nil {
		return nil
	}

	scopes := []struct {
		scope string
		limit int64
	}{
		{action + ":email:" + email, int64(emailLimit)},
	}
	if clientIP != "" {
		scopes = append(scopes, struct {
			scope string
			limit int64
		}{action + ":ip:" + clientIP, int64(ipLimit)})
	}

	for _, entry := range scopes {
		if entry.limit <= 0 {
			continue
		}
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, entry.scope, entry.limit, window)
		if err != nil {
			s.logger.Warn(ctx, action+" rate limit check failed: "+err.Error())
			continue
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, message)
		}
	}
	return nil
}

func (s *service) mintSession(user *models.User) (*Session, error) {
	now := s.now().UTC()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &Session{
		Token:     token,
		ExpiresAt: now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

func validateRegister(input RegisterInput) error {
	missing := []string{}
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Email == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password too short").
			WithDetails(map[string]any{"min_length": minPasswordLength})
	}
	return nil
}
