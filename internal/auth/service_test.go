package auth

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/AgriNITMZ/agriapp-backend/pkg/auth"
	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

// fast argon parameters keep the hashing tests quick
var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTCfg = config.JWTConfig{
	Secret:            "test-secret-test-secret-test-secret",
	Issuer:            "agriapp-test",
	ExpirationMinutes: 60,
}

type memoryLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{counts: map[string]int64{}}
}

func (l *memoryLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, 0, l.err
	}
	l.counts[scope]++
	return l.counts[scope] <= limit, l.counts[scope], nil
}

func newTestService(t *testing.T, limiter rateLimiter) Service {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY, name TEXT NOT NULL, email TEXT NOT NULL UNIQUE,
  phone TEXT, password_hash TEXT NOT NULL, role TEXT NOT NULL DEFAULT 'buyer',
  created_at DATETIME, updated_at DATETIME
);`).Error)

	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	limits := config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginEmailLimit:    3,
		LoginIPLimit:       10,
		RegisterWindow:     time.Minute,
		RegisterEmailLimit: 2,
		RegisterIPLimit:    4,
	}
	svc, err := NewService(db, limiter, testJWTCfg, testPasswordCfg, limits, logg)
	require.NoError(t, err)
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Name:     "Lalrin",
		Email:    "Lalrin@Example.com",
		Password: "hunter2hunter2",
		Role:     "seller",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleSeller, session.Role)
	assert.Equal(t, "lalrin@example.com", session.Email)

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, claims.UserID)
	assert.Equal(t, enums.UserRoleSeller, claims.Role)

	login, err := svc.Login(ctx, LoginInput{
		Email:    "lalrin@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, session.UserID, login.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	input := RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"}
	_, err := svc.Register(ctx, input)
	require.NoError(t, err)

	_, err = svc.Register(ctx, input)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "hunter2hunter2"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "hunter2hunter2"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "short"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2", Role: "admin"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong-password"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "hunter2hunter2"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginRateLimited(t *testing.T) {
	limiter := newMemoryLimiter()
	svc := newTestService(t, limiter)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong"})
		requireCode(t, err, pkgerrors.CodeUnauthorized)
	}

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "hunter2hunter2"})
	requireCode(t, err, pkgerrors.CodeRateLimit)
}

func TestRegisterRateLimited(t *testing.T) {
	limiter := newMemoryLimiter()
	svc := newTestService(t, limiter)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"})
	requireCode(t, err, pkgerrors.CodeConflict)

	// third attempt for the same email inside the window
	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"})
	requireCode(t, err, pkgerrors.CodeRateLimit)
}

func TestRegisterRateLimitedPerIP(t *testing.T) {
	limiter := newMemoryLimiter()
	svc := newTestService(t, limiter)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Register(ctx, RegisterInput{
			Name:     "A",
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "hunter2hunter2",
			ClientIP: "10.0.0.9",
		})
		require.NoError(t, err)
	}

	_, err := svc.Register(ctx, RegisterInput{
		Name:     "A",
		Email:    "user5@example.com",
		Password: "hunter2hunter2",
		ClientIP: "10.0.0.9",
	})
	requireCode(t, err, pkgerrors.CodeRateLimit)
}

func TestLoginLimiterOutageFailsOpen(t *testing.T) {
	limiter := newMemoryLimiter()
	limiter.err = context.DeadlineExceeded
	svc := newTestService(t, limiter)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}
