package sale

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/sale/dto"
)

type Repository interface {
	// Create persists the sale and its items; it joins a transaction carried by ctx.
	Create(ctx context.Context, sale *model.Sale) error
	FindAll(ctx context.Context, filters *dto.SaleFilters) ([]model.Sale, error)
	Summarize(ctx context.Context, filters *dto.SaleFilters) (*dto.Summary, error)
	ListItems(ctx context.Context, shopID string, from, to time.Time) ([]model.SaleItem, error)
}
