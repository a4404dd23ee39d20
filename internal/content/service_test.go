package content

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS news_items (
  id TEXT PRIMARY KEY, title TEXT NOT NULL, body TEXT NOT NULL,
  source_url TEXT, image_url TEXT, published_at DATETIME NOT NULL,
  created_at DATETIME, updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS schemes (
  id TEXT PRIMARY KEY, title TEXT NOT NULL, description TEXT NOT NULL,
  eligibility TEXT, apply_url TEXT, starts_at DATETIME, ends_at DATETIME,
  created_at DATETIME, updated_at DATETIME
);`,
}

func newService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:content_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range schemaDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}
	logg := logger.New(logger.Options{ServiceName: "content-test", Output: io.Discard})
	svc, err := NewService(db, logg)
	require.NoError(t, err)
	return svc, db
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code())
}

func TestNewsLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateNews(ctx, NewsInput{
		Title: "Monsoon advisory for ginger growers",
		Body:  "Drain standing water from beds before the weekend rains.",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	fetched, err := svc.GetNews(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, fetched.Title)

	updated, err := svc.UpdateNews(ctx, created.ID, NewsInput{
		Title: "Monsoon advisory (updated)",
		Body:  fetched.Body,
	})
	require.NoError(t, err)
	assert.Equal(t, "Monsoon advisory (updated)", updated.Title)

	require.NoError(t, svc.DeleteNews(ctx, created.ID))
	_, err = svc.GetNews(ctx, created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestNewsValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateNews(context.Background(), NewsInput{Title: "   "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestNewsListPagination(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateNews(ctx, NewsInput{
			Title: "Bulletin",
			Body:  "Body",
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	first, next, err := svc.ListNews(ctx, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotEmpty(t, next)

	second, last, err := svc.ListNews(ctx, pagination.Params{Limit: 3, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Empty(t, last)

	seen := map[uuid.UUID]bool{}
	for _, item := range append(first, second...) {
		assert.False(t, seen[item.ID], "duplicate item across pages")
		seen[item.ID] = true
	}
}

func TestSchemeLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	eligibility := "Registered farmers in hill districts"
	created, err := svc.CreateScheme(ctx, SchemeInput{
		Title:       "Drip irrigation subsidy",
		Description: "50% capital subsidy on drip kits.",
		Eligibility: &eligibility,
	})
	require.NoError(t, err)

	fetched, err := svc.GetScheme(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.Eligibility)
	assert.Equal(t, eligibility, *fetched.Eligibility)

	updated, err := svc.UpdateScheme(ctx, created.ID, SchemeInput{
		Title:       "Drip irrigation subsidy 2026",
		Description: fetched.Description,
	})
	require.NoError(t, err)
	assert.Equal(t, "Drip irrigation subsidy 2026", updated.Title)
	assert.Nil(t, updated.Eligibility)

	require.NoError(t, svc.DeleteScheme(ctx, created.ID))
	requireCode(t, svc.DeleteScheme(ctx, created.ID), pkgerrors.CodeNotFound)
}

func TestSchemeDateOrdering(t *testing.T) {
	svc, _ := newService(t)

	start := time.Now().UTC()
	end := start.AddDate(0, 0, -1)
	_, err := svc.CreateScheme(context.Background(), SchemeInput{
		Title:       "Backwards window",
		Description: "x",
		StartsAt:    &start,
		EndsAt:      &end,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}
