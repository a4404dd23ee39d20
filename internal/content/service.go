// Package content manages the storefront's editorial surfaces: agricultural
// news and government scheme announcements. Reads are public; mutations are
// admin-only and authorization is enforced at the router.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

// NewsInput carries fields for creating or updating a news item.
type NewsInput struct {
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	SourceURL   *string    `json:"source_url"`
	ImageURL    *string    `json:"image_url"`
	PublishedAt *time.Time `json:"published_at"`
}

// SchemeInput carries fields for creating or updating a scheme.
type SchemeInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Eligibility *string    `json:"eligibility"`
	ApplyURL    *string    `json:"apply_url"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// Service defines news and scheme operations.
type Service interface {
	ListNews(ctx context.Context, params pagination.Params) ([]models.NewsItem, string, error)
	GetNews(ctx context.Context, id uuid.UUID) (*models.NewsItem, error)
	CreateNews(ctx context.Context, input NewsInput) (*models.NewsItem, error)
	UpdateNews(ctx context.Context, id uuid.UUID, input NewsInput) (*models.NewsItem, error)
	DeleteNews(ctx context.Context, id uuid.UUID) error

	ListSchemes(ctx context.Context, params pagination.Params) ([]models.Scheme, string, error)
	GetScheme(ctx context.Context, id uuid.UUID) (*models.Scheme, error)
	CreateScheme(ctx context.Context, input SchemeInput) (*models.Scheme, error)
	UpdateScheme(ctx context.Context, id uuid.UUID, input SchemeInput) (*models.Scheme, error)
	DeleteScheme(ctx context.Context, id uuid.UUID) error
}

type service struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewService builds the content service.
func NewService(db *gorm.DB, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: db, logger: logg}, nil
}

func (s *service) ListNews(ctx context.Context, params pagination.Params) ([]models.NewsItem, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := s.db.WithContext(ctx).Model(&models.NewsItem{})
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var items []models.NewsItem
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list news")
	}

	next := ""
	if len(items) > normalized {
		boundary := items[normalized]
		items = items[:normalized]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: boundary.CreatedAt, ID: boundary.ID})
	}
	return items, next, nil
}

func (s *service) GetNews(ctx context.Context, id uuid.UUID) (*models.NewsItem, error) {
	var item models.NewsItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "news item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load news item")
	}
	return &item, nil
}

func (s *service) CreateNews(ctx context.Context, input NewsInput) (*models.NewsItem, error) {
	if err := validateNews(input); err != nil {
		return nil, err
	}
	item := &models.NewsItem{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Body:        strings.TrimSpace(input.Body),
		SourceURL:   input.SourceURL,
		ImageURL:    input.ImageURL,
		PublishedAt: time.Now().UTC(),
	}
	if input.PublishedAt != nil {
		item.PublishedAt = input.PublishedAt.UTC()
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create news item")
	}
	s.logger.Info(s.logger.WithField(ctx, "news_id", item.ID.String()), "news item created")
	return item, nil
}

func (s *service) UpdateNews(ctx context.Context, id uuid.UUID, input NewsInput) (*models.NewsItem, error) {
	if err := validateNews(input); err != nil {
		return nil, err
	}
	item, err := s.GetNews(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Title = strings.TrimSpace(input.Title)
	item.Body = strings.TrimSpace(input.Body)
	item.SourceURL = input.SourceURL
	item.ImageURL = input.ImageURL
	if input.PublishedAt != nil {
		item.PublishedAt = input.PublishedAt.UTC()
	}
	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update news item")
	}
	return item, nil
}

func (s *service) DeleteNews(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.NewsItem{}, "id = ?", id)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete news item")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "news item not found")
	}
	return nil
}

func (s *service) ListSchemes(ctx context.Context, params pagination.Params) ([]models.Scheme, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := s.db.WithContext(ctx).Model(&models.Scheme{})
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var schemes []models.Scheme
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&schemes).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schemes")
	}

	next := ""
	if len(schemes) > normalized {
		boundary := schemes[normalized]
		schemes = schemes[:normalized]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: boundary.CreatedAt, ID: boundary.ID})
	}
	return schemes, next, nil
}

func (s *service) GetScheme(ctx context.Context, id uuid.UUID) (*models.Scheme, error) {
	var scheme models.Scheme
	if err := s.db.WithContext(ctx).First(&scheme, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scheme not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load scheme")
	}
	return &scheme, nil
}

func (s *service) CreateScheme(ctx context.Context, input SchemeInput) (*models.Scheme, error) {
	if err := validateScheme(input); err != nil {
		return nil, err
	}
	scheme := &models.Scheme{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Eligibility: input.Eligibility,
		ApplyURL:    input.ApplyURL,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
	}
	if err := s.db.WithContext(ctx).Create(scheme).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create scheme")
	}
	s.logger.Info(s.logger.WithField(ctx, "scheme_id", scheme.ID.String()), "scheme created")
	return scheme, nil
}

func (s *service) UpdateScheme(ctx context.Context, id uuid.UUID, input SchemeInput) (*models.Scheme, error) {
	if err := validateScheme(input); err != nil {
		return nil, err
	}
	scheme, err := s.GetScheme(ctx, id)
	if err != nil {
		return nil, err
	}
	scheme.Title = strings.TrimSpace(input.Title)
	scheme.Description = strings.TrimSpace(input.Description)
	scheme.Eligibility = input.Eligibility
	scheme.ApplyURL = input.ApplyURL
	scheme.StartsAt = input.StartsAt
	scheme.EndsAt = input.EndsAt
	if err := s.db.WithContext(ctx).Save(scheme).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update scheme")
	}
	return scheme, nil
}

func (s *service) DeleteScheme(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Scheme{}, "id = ?", id)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete scheme")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "scheme not found")
	}
	return nil
}

func validateNews(input NewsInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

func validateScheme(input SchemeInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheme end date precedes start date")
	}
	return nil
}
