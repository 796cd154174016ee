package shop

import (
	"context"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/shop/dto"
)

type Repository interface {
	Create(ctx context.Context, shop *model.Shop) error
	FindByID(ctx context.Context, id string) (*model.Shop, error)
	FindByName(ctx context.Context, name string) (*model.Shop, error)
	FindAll(ctx context.Context, filters *dto.ShopFilters) ([]model.Shop, int, error)
	Update(ctx context.Context, shop *model.Shop) error
	Delete(ctx context.Context, id string) (bool, error)
	CountProducts(ctx context.Context, shopID string) (int, error)
}
