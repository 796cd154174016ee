package sale

import (
	"context"

	"github.com/fekuna/omnipos-boutique-service/internal/sale/dto"
)

type UseCase interface {
	History(ctx context.Context, filters *dto.SaleFilters) (*dto.History, error)
	Statistics(ctx context.Context, input *dto.StatisticsInput) (*dto.Statistics, error)
}
