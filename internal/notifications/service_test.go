package notifications

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  order_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)

	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, db
}

func TestNotifyAndList(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	svc.Notify(ctx, NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order placed",
		Message: "Your order has been placed.",
		OrderID: &orderID,
	})
	svc.Notify(ctx, NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypePaymentConfirmed,
		Title:   "Payment received",
		Message: "Payment for your order is confirmed.",
		OrderID: &orderID,
	})
	// invalid inputs are dropped silently
	svc.Notify(ctx, NotifyInput{UserID: uuid.Nil, Type: enums.NotificationTypeOrderPlaced})
	svc.Notify(ctx, NotifyInput{UserID: userID, Type: enums.NotificationType("bogus")})

	result, err := svc.List(ctx, ListParams{UserID: userID})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Empty(t, result.Cursor)
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	svc.Notify(ctx, NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypeShipmentUpdate,
		Title:   "Shipment update",
		Message: "Your order is out for delivery.",
	})

	var stored models.Notification
	require.NoError(t, db.First(&stored, "user_id = ?", userID).Error)

	require.NoError(t, svc.MarkRead(ctx, userID, stored.ID))

	require.NoError(t, db.First(&stored, "id = ?", stored.ID).Error)
	assert.NotNil(t, stored.ReadAt)

	// repeat mark is a no-op, not an error
	require.NoError(t, svc.MarkRead(ctx, userID, stored.ID))

	err := svc.MarkRead(ctx, uuid.New(), stored.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkAllRead(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		svc.Notify(ctx, NotifyInput{
			UserID:  userID,
			Type:    enums.NotificationTypeAnnouncement,
			Title:   "Announcement",
			Message: "Scheme window extended.",
		})
	}

	count, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	result, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	count, err = svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
