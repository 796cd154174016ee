package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/pricing"
	"github.com/fekuna/omnipos-boutique-service/internal/sale"
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/fekuna/omnipos-boutique-service/pkg/broker"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types published after a workflow commits.
const (
	EventStockReceived    = "stock.received"
	EventSaleRecorded     = "sale.recorded"
	EventStockTransferred = "stock.transferred"
)

const DefaultAlertThreshold = 10

// CatalogSync refreshes the derived copies of product rows (listing caches,
// search documents) once their stock changed.
type CatalogSync interface {
	RefreshStock(ctx context.Context, productIDs ...string)
}

type Options struct {
	// StrictUnits rejects conversions between unit families instead of
	// passing the quantity through unchanged.
	StrictUnits    bool
	AlertThreshold float64
}

type inventoryUseCase struct {
	repo      inventory.Repository
	sales     sale.Repository
	tx        postgres.Transactor
	publisher broker.Publisher
	catalog   CatalogSync
	logger    logger.ZapLogger
	opts      Options
	now       func() time.Time
}

func NewInventoryUseCase(
	repo inventory.Repository,
	sales sale.Repository,
	tx postgres.Transactor,
	publisher broker.Publisher,
	catalog CatalogSync,
	log logger.ZapLogger,
	opts Options,
) inventory.UseCase {
	if publisher == nil {
		publisher = broker.NopPublisher{}
	}
	if opts.AlertThreshold <= 0 {
		opts.AlertThreshold = DefaultAlertThreshold
	}
	return &inventoryUseCase{
		repo:      repo,
		sales:     sales,
		tx:        tx,
		publisher: publisher,
		catalog:   catalog,
		logger:    log,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// resolveUnit parses the requested unit (empty means base) and applies the
// cross-family policy against base.
func (uc *inventoryUseCase) resolveUnit(op, requested string, base units.Unit, productID string) (units.Unit, error) {
	if strings.TrimSpace(requested) == "" {
		return base, nil
	}
	u, ok := units.ParseUnit(requested)
	if !ok {
		return "", apperr.Validation(op, "invalid unit %q", requested)
	}
	if !units.Compatible(u, base) {
		if uc.opts.StrictUnits {
			return "", apperr.Validation(op, "cannot convert %s to %s", u, base)
		}
		uc.logger.Warn("cross-family unit conversion passed through unchanged",
			zap.String("operation", op),
			zap.String("product_id", productID),
			zap.String("from", string(u)),
			zap.String("to", string(base)),
		)
	}
	return u, nil
}

func (uc *inventoryUseCase) loadProduct(ctx context.Context, op, id string) (*model.Product, error) {
	p, err := uc.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if p == nil {
		return nil, apperr.NotFound(op, "product %s not found", id)
	}
	return p, nil
}

func (uc *inventoryUseCase) publish(ctx context.Context, key, eventType string, payload interface{}) {
	if err := uc.publisher.Publish(ctx, key, eventType, payload); err != nil {
		uc.logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// refreshCatalog runs in the background; the workflow has already committed.
func (uc *inventoryUseCase) refreshCatalog(productIDs ...string) {
	if uc.catalog == nil || len(productIDs) == 0 {
		return
	}
	go uc.catalog.RefreshStock(context.Background(), productIDs...)
}

func insufficient(op, what string, available, requested float64, unit units.Unit) error {
	return apperr.InsufficientStock(op, "insufficient stock for %s: available %g %s, requested %g %s",
		what, available, unit, requested, unit)
}

func (uc *inventoryUseCase) Receive(ctx context.Context, input *dto.ReceiveInput) (*dto.ReceiveResult, error) {
	const op = "receiveStock"

	if input.Quantity <= 0 {
		return nil, apperr.Validation(op, "quantity must be positive")
	}

	p, err := uc.loadProduct(ctx, op, input.ProductID)
	if err != nil {
		return nil, err
	}

	unit, err := uc.resolveUnit(op, input.Unit, p.Unit, p.ID)
	if err != nil {
		return nil, err
	}
	delta := units.Convert(input.Quantity, unit, p.Unit)
	now := uc.now()

	res := &dto.ReceiveResult{ProductID: p.ID, Delta: delta, Unit: p.Unit}

	switch {
	case input.VariantID != "":
		if !p.HasVariants() {
			return nil, apperr.Validation(op, "product %q has no variants", p.Name)
		}
		v := p.Variant(input.VariantID)
		if v == nil {
			return nil, apperr.NotFound(op, "variant %s not found in product %q", input.VariantID, p.Name)
		}
		newStock, err := uc.repo.IncrementVariantStock(ctx, v.ID, delta, now)
		if err != nil {
			return nil, uc.stockRowError(op, err, "variant %s not found", v.ID)
		}
		res.VariantID = v.ID
		res.NewStock = newStock
	case p.HasVariants():
		return nil, apperr.Validation(op, "product %q tracks stock per variant; a variant id is required", p.Name)
	default:
		newStock, err := uc.repo.IncrementStock(ctx, p.ID, delta, now)
		if err != nil {
			return nil, uc.stockRowError(op, err, "product %s not found or now tracks stock per variant", p.ID)
		}
		res.NewStock = newStock
	}
	res.OldStock = res.NewStock - delta

	uc.logger.Info("stock received",
		zap.String("product_id", p.ID),
		zap.Float64("delta", delta),
		zap.Float64("new_stock", res.NewStock),
	)
	uc.publish(ctx, p.ID, EventStockReceived, res)
	uc.refreshCatalog(p.ID)

	return res, nil
}

func (uc *inventoryUseCase) stockRowError(op string, err error, format string, args ...interface{}) error {
	if errors.Is(err, inventory.ErrStockRowNotFound) {
		return apperr.NotFound(op, format, args...)
	}
	return apperr.Persistence(op, err)
}

func (uc *inventoryUseCase) Sell(ctx context.Context, input *dto.SellInput) (*dto.SellResult, error) {
	const op = "sellProduct"

	if input.Quantity <= 0 {
		return nil, apperr.Validation(op, "quantity must be positive")
	}

	p, err := uc.loadProduct(ctx, op, input.ProductID)
	if err != nil {
		return nil, err
	}
	if p.HasVariants() {
		return nil, apperr.Validation(op, "product %q is sold per variant; use checkout", p.Name)
	}

	unitSold, err := uc.resolveUnit(op, input.Unit, p.Unit, p.ID)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.NewQuote(p.BasePrice, p.Unit, unitSold, input.Quantity, input.CustomPrice)
	if err != nil {
		return nil, apperr.Validation(op, "%s", err.Error())
	}

	if p.Stock < quote.QuantityBase {
		return nil, insufficient(op, fmt.Sprintf("%q", p.Name), p.Stock, quote.QuantityBase, p.Unit)
	}

	now := uc.now()
	soldAt := now
	if input.SoldAt != nil {
		soldAt = input.SoldAt.UTC()
	}

	shopID := p.ShopID
	record := &model.Sale{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: soldAt, UpdatedAt: now},
		ShopID:      &shopID,
		TotalAmount: quote.Total,
		Items: []model.SaleItem{{
			ID:           uuid.New().String(),
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     input.Quantity,
			Unit:         unitSold,
			QuantityBase: quote.QuantityBase,
			BaseUnit:     p.Unit,
			UnitPrice:    quote.UnitPrice,
			Total:        quote.Total,
		}},
	}

	var newStock float64
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		newStock, err = uc.repo.DecrementStock(ctx, p.ID, quote.QuantityBase, now)
		if err != nil {
			return err
		}
		return uc.sales.Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			// Lost a race against another sale after the pre-check.
			return nil, insufficient(op, fmt.Sprintf("%q", p.Name), p.Stock, quote.QuantityBase, p.Unit)
		}
		return nil, apperr.Persistence(op, err)
	}

	res := &dto.SellResult{
		SaleID:           record.ID,
		ProductID:        p.ID,
		OldStock:         newStock + quote.QuantityBase,
		NewStock:         newStock,
		QuantitySold:     input.Quantity,
		UnitSold:         unitSold,
		QuantityDeducted: quote.QuantityBase,
		BaseUnit:         p.Unit,
		UnitPrice:        quote.UnitPrice,
		TotalPrice:       quote.Total,
		CustomPrice:      quote.Overridden,
	}

	uc.logger.Info("product sold",
		zap.String("sale_id", record.ID),
		zap.String("product_id", p.ID),
		zap.Float64("quantity_deducted", quote.QuantityBase),
		zap.String("total", quote.Total.String()),
	)
	uc.publish(ctx, shopID, EventSaleRecorded, record)
	uc.refreshCatalog(p.ID)

	return res, nil
}

func (uc *inventoryUseCase) Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error) {
	const op = "transferStock"

	switch {
	case input.ProductID == "":
		return nil, apperr.Validation(op, "product id is required")
	case input.SourceShopID == "":
		return nil, apperr.Validation(op, "source shop id is required")
	case input.DestShopID == "":
		return nil, apperr.Validation(op, "destination shop id is required")
	case input.Quantity <= 0:
		return nil, apperr.Validation(op, "quantity must be positive")
	case input.SourceShopID == input.DestShopID:
		return nil, apperr.Validation(op, "source and destination shops must differ")
	}

	dest, err := uc.repo.FindProduct(ctx, input.ProductID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if dest == nil || dest.ShopID != input.DestShopID {
		return nil, apperr.NotFound(op, "product %s not found in destination shop %s", input.ProductID, input.DestShopID)
	}

	source, err := uc.findSource(ctx, input.SourceShopID, dest)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if source == nil {
		return nil, apperr.NotFound(op, "product %q not found in source shop %s", dest.Name, input.SourceShopID)
	}
	if dest.HasVariants() || source.HasVariants() {
		return nil, apperr.Validation(op, "product %q tracks stock per variant and cannot be transferred", dest.Name)
	}

	unit, err := uc.resolveUnit(op, input.Unit, source.Unit, source.ID)
	if err != nil {
		return nil, err
	}
	if source.Unit != dest.Unit {
		if uc.opts.StrictUnits {
			return nil, apperr.Validation(op, "source unit %s differs from destination unit %s", source.Unit, dest.Unit)
		}
		uc.logger.Warn("transfer between rows with different units",
			zap.String("source_id", source.ID),
			zap.String("dest_id", dest.ID),
			zap.String("source_unit", string(source.Unit)),
			zap.String("dest_unit", string(dest.Unit)),
		)
	}
	qty := units.Convert(input.Quantity, unit, source.Unit)

	if source.Stock < qty {
		return nil, insufficient(op, fmt.Sprintf("%q in shop %s", source.Name, source.ShopID), source.Stock, qty, source.Unit)
	}

	now := uc.now()
	var srcNew, dstNew float64
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if srcNew, err = uc.repo.DecrementStock(ctx, source.ID, qty, now); err != nil {
			return err
		}
		// Same base quantity on both sides; rows are expected to share a unit.
		dstNew, err = uc.repo.IncrementStock(ctx, dest.ID, qty, now)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrInsufficientStock):
			return nil, insufficient(op, fmt.Sprintf("%q in shop %s", source.Name, source.ShopID), source.Stock, qty, source.Unit)
		case errors.Is(err, inventory.ErrStockRowNotFound):
			return nil, apperr.NotFound(op, "product %s not found in destination shop %s", dest.ID, dest.ShopID)
		}
		return nil, apperr.Persistence(op, err)
	}

	res := &dto.TransferResult{
		Quantity: qty,
		Unit:     source.Unit,
		Source: dto.StockChange{
			ProductID: source.ID,
			ShopID:    source.ShopID,
			OldStock:  srcNew + qty,
			NewStock:  srcNew,
		},
		Destination: dto.StockChange{
			ProductID: dest.ID,
			ShopID:    dest.ShopID,
			OldStock:  dstNew - qty,
			NewStock:  dstNew,
		},
	}

	uc.logger.Info("stock transferred",
		zap.String("source_id", source.ID),
		zap.String("dest_id", dest.ID),
		zap.Float64("quantity", qty),
	)
	uc.publish(ctx, dest.ID, EventStockTransferred, res)
	uc.refreshCatalog(source.ID, dest.ID)

	return res, nil
}

// findSource joins on the shared catalog id when the destination row has
// one, and on the product name otherwise.
func (uc *inventoryUseCase) findSource(ctx context.Context, shopID string, dest *model.Product) (*model.Product, error) {
	if dest.CatalogID != nil && *dest.CatalogID != "" {
		return uc.repo.FindInShopByCatalogID(ctx, shopID, *dest.CatalogID)
	}
	return uc.repo.FindInShopByName(ctx, shopID, dest.Name)
}

func validateCheckout(op string, input *dto.CheckoutInput) error {
	if len(input.Items) == 0 {
		return apperr.Validation(op, "at least one item is required")
	}
	if !input.TotalAmount.IsPositive() {
		return apperr.Validation(op, "total amount must be positive")
	}
	for i, it := range input.Items {
		switch {
		case it.ProductID == "":
			return apperr.Validation(op, "item %d: product id is required", i+1)
		case it.VariantID == "":
			return apperr.Validation(op, "item %d: variant id is required", i+1)
		case it.Quantity <= 0:
			return apperr.Validation(op, "item %d: quantity must be positive", i+1)
		case !it.Price.IsPositive():
			return apperr.Validation(op, "item %d: price must be positive", i+1)
		}
	}
	return nil
}

// Checkout sells variant stock item by item. An item that cannot be served
// is skipped and reported; the call only fails when no item is accepted.
func (uc *inventoryUseCase) Checkout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error) {
	const op = "checkout"

	if err := validateCheckout(op, input); err != nil {
		return nil, err
	}

	now := uc.now()
	soldAt := now
	if input.SoldAt != nil {
		soldAt = input.SoldAt.UTC()
	}

	res := &dto.CheckoutResult{TotalAmount: decimal.Zero, Errors: []string{}}
	record := &model.Sale{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: soldAt, UpdatedAt: now},
	}
	if input.ShopID != "" {
		shopID := input.ShopID
		record.ShopID = &shopID
	}

	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i, it := range input.Items {
			shopID := ""
			if record.ShopID != nil {
				shopID = *record.ShopID
			}
			item, reason, err := uc.checkoutItem(ctx, i, it, shopID, now)
			if err != nil {
				return err
			}
			if reason != "" {
				res.Errors = append(res.Errors, reason)
				continue
			}
			if record.ShopID == nil {
				shopID := item.shopID
				record.ShopID = &shopID
			}
			record.Items = append(record.Items, item.line)
			record.TotalAmount = record.TotalAmount.Add(item.line.Total)
		}

		if len(record.Items) == 0 {
			return apperr.Validation(op, "no item could be sold")
		}
		return uc.sales.Create(ctx, record)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return res, err
		}
		return nil, apperr.Persistence(op, err)
	}

	res.SaleID = record.ID
	res.AcceptedCount = len(record.Items)
	res.TotalAmount = record.TotalAmount

	uc.logger.Info("checkout completed",
		zap.String("sale_id", record.ID),
		zap.Int("accepted", res.AcceptedCount),
		zap.Int("rejected", len(res.Errors)),
		zap.String("total", res.TotalAmount.String()),
	)
	uc.publish(ctx, record.ID, EventSaleRecorded, record)
	uc.refreshCatalog(saleProductIDs(record)...)

	return res, nil
}

type acceptedItem struct {
	shopID string
	line   model.SaleItem
}

// checkoutItem returns either the accepted line or a human readable reason.
// Once the sale has a shop, products of other shops are rejected.
// A non-nil error aborts the whole checkout.
func (uc *inventoryUseCase) checkoutItem(ctx context.Context, i int, it dto.CheckoutItem, shopID string, now time.Time) (*acceptedItem, string, error) {
	p, err := uc.repo.FindProduct(ctx, it.ProductID)
	if err != nil {
		return nil, "", err
	}
	if p == nil {
		return nil, fmt.Sprintf("item %d: product %s not found", i+1, it.ProductID), nil
	}
	if shopID != "" && p.ShopID != shopID {
		return nil, fmt.Sprintf("item %d: product %q belongs to another shop", i+1, p.Name), nil
	}
	if !p.HasVariants() {
		return nil, fmt.Sprintf("item %d: product %q has no variants", i+1, p.Name), nil
	}
	v := p.Variant(it.VariantID)
	if v == nil {
		return nil, fmt.Sprintf("item %d: variant %s not found in product %q", i+1, it.VariantID, p.Name), nil
	}

	shortage := fmt.Sprintf("item %d: insufficient stock for variant %q of %q: available %g, requested %g",
		i+1, v.Name, p.Name, v.Stock, it.Quantity)
	if v.Stock < it.Quantity {
		return nil, shortage, nil
	}
	if _, err := uc.repo.DecrementVariantStock(ctx, v.ID, it.Quantity, now); err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return nil, shortage, nil
		}
		return nil, "", err
	}

	variantID, variantName := v.ID, v.Name
	return &acceptedItem{
		shopID: p.ShopID,
		line: model.SaleItem{
			ID:           uuid.New().String(),
			ProductID:    p.ID,
			ProductName:  p.Name,
			VariantID:    &variantID,
			VariantName:  &variantName,
			Quantity:     it.Quantity,
			Unit:         p.Unit,
			QuantityBase: it.Quantity,
			BaseUnit:     p.Unit,
			UnitPrice:    it.Price,
			Total:        pricing.LineTotal(it.Price, it.Quantity),
		},
	}, "", nil
}

func (uc *inventoryUseCase) ListStockAlerts(ctx context.Context, filters *dto.AlertFilters) ([]model.Product, error) {
	const op = "listStockAlerts"

	threshold := uc.opts.AlertThreshold
	if filters.Threshold != nil {
		if *filters.Threshold < 0 {
			return nil, apperr.Validation(op, "threshold must not be negative")
		}
		threshold = *filters.Threshold
	}

	products, err := uc.repo.ListLowStock(ctx, threshold, filters.ShopID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return products, nil
}

func saleProductIDs(record *model.Sale) []string {
	seen := make(map[string]bool, len(record.Items))
	ids := make([]string, 0, len(record.Items))
	for _, it := range record.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}
