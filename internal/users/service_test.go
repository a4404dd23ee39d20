package users

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY, name TEXT NOT NULL, email TEXT NOT NULL UNIQUE,
  phone TEXT, password_hash TEXT NOT NULL, role TEXT NOT NULL DEFAULT 'buyer',
  created_at DATETIME, updated_at DATETIME
);`).Error)

	logg := logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard})
	svc, err := NewService(db, testPasswordCfg, logg)
	require.NoError(t, err)
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Lalrin",
		Email:        "lalrin@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleBuyer,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code())
}

func TestGetProfile(t *testing.T) {
	svc, db := newTestService(t)
	user := seedUser(t, db, "hunter2hunter2")

	profile, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Name, profile.Name)
	assert.Equal(t, "buyer", profile.Role)

	_, err = svc.Get(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Get(context.Background(), uuid.Nil)
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	svc, db := newTestService(t)
	user := seedUser(t, db, "hunter2hunter2")

	profile, err := svc.Update(context.Background(), user.ID, UpdateInput{
		Name:  "Lalrinmawia",
		Phone: "9876500001",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lalrinmawia", profile.Name)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, "9876500001", *profile.Phone)

	// clearing the phone drops it
	profile, err = svc.Update(context.Background(), user.ID, UpdateInput{Name: "Lalrinmawia"})
	require.NoError(t, err)
	assert.Nil(t, profile.Phone)

	_, err = svc.Update(context.Background(), user.ID, UpdateInput{Name: "   "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestChangePassword(t *testing.T) {
	svc, db := newTestService(t)
	user := seedUser(t, db, "hunter2hunter2")
	ctx := context.Background()

	err := svc.ChangePassword(ctx, user.ID, ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword123",
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{
		CurrentPassword: "hunter2hunter2",
		NewPassword:     "short",
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{
		CurrentPassword: "hunter2hunter2",
		NewPassword:     "newpassword123",
	})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	ok, err := security.VerifyPassword("newpassword123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
