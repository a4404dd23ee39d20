// Package analytics computes seller-facing sales aggregates. Results are
// cached in redis with a short TTL; a stale summary is acceptable, so cache
// failures degrade to a direct query rather than an error.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/config"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/redis"
)

const topProductLimit = 5

// Period bounds a summary window.
type Period string

const (
	PeriodWeek    Period = "7d"
	PeriodMonth   Period = "30d"
	PeriodQuarter Period = "90d"
	PeriodAll     Period = "all"
)

// ParsePeriod validates a raw period string, defaulting to 30 days.
func ParsePeriod(value string) (Period, error) {
	switch Period(value) {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodAll:
		return Period(value), nil
	case "":
		return PeriodMonth, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid period").
			WithDetails(map[string]any{"period": value, "allowed": []string{"7d", "30d", "90d", "all"}})
	}
}

func (p Period) start(now time.Time) *time.Time {
	var days int
	switch p {
	case PeriodWeek:
		days = 7
	case PeriodMonth:
		days = 30
	case PeriodQuarter:
		days = 90
	default:
		return nil
	}
	from := now.AddDate(0, 0, -days)
	return &from
}

// TopProduct is one row of the best-sellers breakdown.
type TopProduct struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// SellerSummary aggregates a seller's realized sales for a period. Revenue
// counts discounted line prices on orders that are not cancelled and are
// either cash-on-delivery or gateway-paid.
type SellerSummary struct {
	SellerID    uuid.UUID       `json:"seller_id"`
	Period      Period          `json:"period"`
	From        *time.Time      `json:"from,omitempty"`
	To          time.Time       `json:"to"`
	TotalOrders int64           `json:"total_orders"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
	TopProducts []TopProduct    `json:"top_products"`
	CachedAt    *time.Time      `json:"cached_at,omitempty"`
}

// Service defines analytics reads.
type Service interface {
	SellerSummary(ctx context.Context, sellerID uuid.UUID, period Period) (*SellerSummary, error)
}

type service struct {
	db     *gorm.DB
	cache  redis.ResponseCache
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds the analytics service. cache may be nil, in which case
// every call hits the database.
func NewService(db *gorm.DB, cache redis.ResponseCache, cfg config.CacheConfig, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := cfg.AnalyticsTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{db: db, cache: cache, ttl: ttl, logger: logg, now: time.Now}, nil
}

func (s *service) SellerSummary(ctx context.Context, sellerID uuid.UUID, period Period) (*SellerSummary, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.CacheKey("analytics", "seller", sellerID.String(), string(period))
		var cached SellerSummary
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if err != redis.ErrCacheMiss {
			s.logger.Warn(ctx, "analytics cache read failed: "+err.Error())
		}
	}

	summary, err := s.compute(ctx, sellerID, period)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cachedAt := s.now().UTC()
		summary.CachedAt = &cachedAt
		if err := s.cache.SetJSON(ctx, cacheKey, summary, s.ttl); err != nil {
			s.logger.Warn(ctx, "analytics cache write failed: "+err.Error())
		}
	}
	return summary, nil
}

func (s *service) compute(ctx context.Context, sellerID uuid.UUID, period Period) (*SellerSummary, error) {
	now := s.now().UTC()
	summary := &SellerSummary{
		SellerID:    sellerID,
		Period:      period,
		To:          now,
		Revenue:     decimal.Zero,
		TopProducts: []TopProduct{},
	}
	summary.From = period.start(now)

	base := s.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders AS o ON o.id = oi.order_id").
		Where("oi.seller_id = ?", sellerID).
		Where("o.order_status <> ?", enums.OrderStatusCancelled).
		Where("o.payment_method = ? OR o.payment_status = ?",
			enums.PaymentMethodCOD, enums.PaymentStatusCompleted)
	if summary.From != nil {
		base = base.Where("o.created_at >= ?", *summary.From)
	}

	var totals struct {
		Orders  int64
		Units   int64
		Revenue decimal.Decimal
	}
	err := base.Session(&gorm.Session{}).
		Select("COUNT(DISTINCT oi.order_id) AS orders, " +
			"COALESCE(SUM(oi.quantity), 0) AS units, " +
			"COALESCE(SUM(oi.discounted_price * oi.quantity), 0) AS revenue").
		Scan(&totals).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate sales totals")
	}
	summary.TotalOrders = totals.Orders
	summary.UnitsSold = totals.Units
	summary.Revenue = totals.Revenue

	var top []TopProduct
	err = base.Session(&gorm.Session{}).
		Select("oi.product_id AS product_id, oi.name AS name, " +
			"COALESCE(SUM(oi.quantity), 0) AS units_sold, " +
			"COALESCE(SUM(oi.discounted_price * oi.quantity), 0) AS revenue").
		Group("oi.product_id, oi.name").
		Order("units_sold DESC").
		Limit(topProductLimit).
		Scan(&top).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate top products")
	}
	if top != nil {
		summary.TopProducts = top
	}
	return summary, nil
}
