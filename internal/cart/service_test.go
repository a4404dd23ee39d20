package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  seller_id TEXT,
  size TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestAddMergesSameLine(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	productID := uuid.New()
	sellerID := uuid.New()

	first, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: productID, SellerID: &sellerID, Size: "5kg", Quantity: 2})
	require.NoError(t, err)

	merged, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: productID, SellerID: &sellerID, Size: "5kg", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)

	// different size is a separate line
	_, err = svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: productID, SellerID: &sellerID, Size: "25kg", Quantity: 1})
	require.NoError(t, err)

	items, err := svc.List(ctx, buyerID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAddNilSellerIsItsOwnLine(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()
	productID := uuid.New()
	sellerID := uuid.New()

	_, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: productID, Size: "1kg", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: productID, SellerID: &sellerID, Size: "1kg", Quantity: 1})
	require.NoError(t, err)

	items, err := svc.List(ctx, buyerID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestQuantityBounds(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()

	_, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: uuid.New(), Size: "1kg", Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: uuid.New(), Size: "1kg", Quantity: maxLineQuantity + 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	// merge caps at the line maximum rather than failing
	line, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: uuid.New(), Size: "1kg", Quantity: maxLineQuantity})
	require.NoError(t, err)
	merged, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: line.ProductID, Size: "1kg", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, maxLineQuantity, merged.Quantity)
}

func TestUpdateRemoveClear(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	buyerID := uuid.New()

	line, err := svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: uuid.New(), Size: "1kg", Quantity: 2})
	require.NoError(t, err)

	updated, err := svc.UpdateQuantity(ctx, buyerID, line.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	_, err = svc.UpdateQuantity(ctx, buyerID, uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	// other buyers cannot remove the line
	err = svc.Remove(ctx, uuid.New(), line.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, svc.Remove(ctx, buyerID, line.ID))

	_, err = svc.Add(ctx, AddInput{BuyerID: buyerID, ProductID: uuid.New(), Size: "1kg", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, buyerID))

	items, err := svc.List(ctx, buyerID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
