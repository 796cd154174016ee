package shop

import (
	"context"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/shop/dto"
)

type UseCase interface {
	CreateShop(ctx context.Context, input *dto.CreateShopInput) (*model.Shop, error)
	GetShop(ctx context.Context, id string) (*model.Shop, error)
	ListShops(ctx context.Context, filters *dto.ShopFilters) ([]model.Shop, int, error)
	UpdateShop(ctx context.Context, input *dto.UpdateShopInput) (*model.Shop, error)
	DeleteShop(ctx context.Context, id string) error
	// SeedShops creates each shop together with its manager account.
	SeedShops(ctx context.Context, inputs []dto.SeedShopInput) (*dto.SeedResult, error)
}
