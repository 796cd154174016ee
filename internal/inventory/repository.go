package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
)

// ErrInsufficientStock is returned by the conditional decrements when the
// row holds less than the requested amount. Nothing is written in that case.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrStockRowNotFound is returned by the increments when the row is gone.
var ErrStockRowNotFound = errors.New("stock row not found")

type Repository interface {
	// FindProduct loads the product with its variants, or nil when absent.
	FindProduct(ctx context.Context, id string) (*model.Product, error)
	FindInShopByCatalogID(ctx context.Context, shopID, catalogID string) (*model.Product, error)
	FindInShopByName(ctx context.Context, shopID, name string) (*model.Product, error)

	// Stock mutations return the stock after the change.
	IncrementStock(ctx context.Context, productID string, delta float64, at time.Time) (float64, error)
	DecrementStock(ctx context.Context, productID string, delta float64, at time.Time) (float64, error)
	IncrementVariantStock(ctx context.Context, variantID string, delta float64, at time.Time) (float64, error)
	DecrementVariantStock(ctx context.Context, variantID string, delta float64, at time.Time) (float64, error)

	ListLowStock(ctx context.Context, threshold float64, shopID string) ([]model.Product, error)
}
