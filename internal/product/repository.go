package product

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/product/dto"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	// Update leaves stock and kind untouched; see SetStock and MarkVarianted.
	Update(ctx context.Context, product *model.Product) error
	SetStock(ctx context.Context, productID string, stock float64, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)

	ShopExists(ctx context.Context, shopID string) (bool, error)

	// Variants
	CreateVariant(ctx context.Context, variant *model.ProductVariant) error
	ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error)
	MarkVarianted(ctx context.Context, productID string, at time.Time) (bool, error)
}
