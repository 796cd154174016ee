package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/pricing"
	"github.com/fekuna/omnipos-boutique-service/internal/sale"
	"github.com/fekuna/omnipos-boutique-service/internal/sale/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/cache"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	defaultTopLimit = 5
	statsTTL        = time.Minute
)

// StatsCache stores computed statistics between requests.
type StatsCache interface {
	GetMsgpack(ctx context.Context, key string, dest interface{}) error
	SetMsgpack(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type saleUseCase struct {
	repo   sale.Repository
	cache  StatsCache
	logger logger.ZapLogger
	now    func() time.Time
}

// NewSaleUseCase accepts a nil cache; statistics are then computed on every call.
func NewSaleUseCase(repo sale.Repository, cache StatsCache, log logger.ZapLogger) sale.UseCase {
	return &saleUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *saleUseCase) History(ctx context.Context, filters *dto.SaleFilters) (*dto.History, error) {
	const op = "salesHistory"

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = defaultPageSize
	}
	if filters.PageSize > maxPageSize {
		filters.PageSize = maxPageSize
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, apperr.Validation(op, "from must not be after to")
	}

	sales, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	summary, err := uc.repo.Summarize(ctx, filters)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	return &dto.History{
		Sales:    sales,
		Page:     filters.Page,
		PageSize: filters.PageSize,
		Summary:  *summary,
	}, nil
}

// PeriodStart returns the start of the day, month or year containing now.
func PeriodStart(period dto.Period, now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	switch period {
	case dto.PeriodDay:
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case dto.PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), true
	case dto.PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()), true
	}
	return time.Time{}, false
}

func (uc *saleUseCase) Statistics(ctx context.Context, input *dto.StatisticsInput) (*dto.Statistics, error) {
	const op = "salesStatistics"

	if input.Period == "" {
		input.Period = dto.PeriodDay
	}
	if input.Limit <= 0 {
		input.Limit = defaultTopLimit
	}

	now := uc.now()
	from, ok := PeriodStart(input.Period, now)
	if !ok {
		return nil, apperr.Validation(op, "period must be one of day, month, year")
	}

	key := fmt.Sprintf("sales:stats:%s:%s:%d", shopScope(input.ShopID), input.Period, input.Limit)
	if uc.cache != nil {
		var cached dto.Statistics
		err := uc.cache.GetMsgpack(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("statistics cache read failed", zap.Error(err))
		}
	}

	summary, err := uc.repo.Summarize(ctx, &dto.SaleFilters{ShopID: input.ShopID, From: &from, To: &now})
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	items, err := uc.repo.ListItems(ctx, input.ShopID, from, now)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	stats := &dto.Statistics{
		Period:      input.Period,
		ShopID:      input.ShopID,
		From:        from,
		To:          now,
		SaleCount:   summary.Count,
		TotalAmount: summary.TotalAmount.Round(pricing.MoneyPlaces),
		TopProducts: topProducts(items, input.Limit),
	}
	for _, it := range items {
		stats.ItemsSold += it.QuantityBase
	}

	if uc.cache != nil {
		if err := uc.cache.SetMsgpack(ctx, key, stats, statsTTL); err != nil {
			uc.logger.Warn("statistics cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// topProducts ranks products by summed base quantity; ties break on revenue, then id.
func topProducts(items []model.SaleItem, limit int) []dto.TopProduct {
	byProduct := map[string]*dto.TopProduct{}
	for _, it := range items {
		tp, ok := byProduct[it.ProductID]
		if !ok {
			tp = &dto.TopProduct{ProductID: it.ProductID, ProductName: it.ProductName, Revenue: decimal.Zero}
			byProduct[it.ProductID] = tp
		}
		tp.Quantity += it.QuantityBase
		tp.Revenue = tp.Revenue.Add(it.Total)
	}

	ranked := make([]dto.TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		ranked = append(ranked, *tp)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		if c := ranked[i].Revenue.Cmp(ranked[j].Revenue); c != 0 {
			return c > 0
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func shopScope(shopID string) string {
	if shopID == "" {
		return "all"
	}
	return shopID
}
