package inventory

import (
	"context"

	"github.com/fekuna/omnipos-boutique-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
)

type UseCase interface {
	Receive(ctx context.Context, input *dto.ReceiveInput) (*dto.ReceiveResult, error)
	Sell(ctx context.Context, input *dto.SellInput) (*dto.SellResult, error)
	Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error)
	// Checkout returns a result carrying the per-item errors even when it fails.
	Checkout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error)
	ListStockAlerts(ctx context.Context, filters *dto.AlertFilters) ([]model.Product, error)
}
