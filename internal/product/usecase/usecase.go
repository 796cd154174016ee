package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/product"
	"github.com/fekuna/omnipos-boutique-service/internal/product/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/fekuna/omnipos-boutique-service/pkg/cache"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/fekuna/omnipos-boutique-service/pkg/search"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const productsIndex = "products"

// ListCache is the cache-aside store for product listings.
type ListCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Indexer mirrors products into the search engine.
type Indexer interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
	Delete(ctx context.Context, index, id string) error
}

type productUseCase struct {
	repo   product.Repository
	tx     postgres.Transactor
	cache  ListCache
	es     Indexer
	logger logger.ZapLogger
	now    func() time.Time
}

// NewProductUseCase accepts a nil cache or indexer; the matching feature is then skipped.
func NewProductUseCase(repo product.Repository, tx postgres.Transactor, cache ListCache, es Indexer, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		tx:     tx,
		cache:  cache,
		es:     es,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	const op = "createProduct"

	if strings.TrimSpace(input.ShopID) == "" {
		return nil, apperr.Validation(op, "shop id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperr.Validation(op, "name is required")
	}
	unit, ok := units.ParseUnit(input.Unit)
	if !ok {
		return nil, apperr.Validation(op, "invalid unit %q", input.Unit)
	}
	if !input.BasePrice.IsPositive() {
		return nil, apperr.Validation(op, "base price must be positive")
	}
	if input.Stock < 0 {
		return nil, apperr.Validation(op, "stock must not be negative")
	}
	if len(input.Variants) > 0 && input.Stock != 0 {
		return nil, apperr.Validation(op, "stock of a product with variants is tracked per variant")
	}
	for i, v := range input.Variants {
		if err := validateVariant(op, i, &v); err != nil {
			return nil, err
		}
	}

	exists, err := uc.repo.ShopExists(ctx, input.ShopID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if !exists {
		return nil, apperr.NotFound(op, "shop %s not found", input.ShopID)
	}

	now := uc.now()
	p := &model.Product{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		ShopID:      input.ShopID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Kind:        model.ProductKindSimple,
		Stock:       input.Stock,
		Unit:        unit,
		BasePrice:   input.BasePrice,
		Metadata:    input.Metadata,
	}
	if input.CatalogID != "" {
		catalogID := input.CatalogID
		p.CatalogID = &catalogID
	}
	if len(input.Variants) > 0 {
		p.Kind = model.ProductKindVarianted
		for _, v := range input.Variants {
			p.Variants = append(p.Variants, model.ProductVariant{
				BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
				ProductID: p.ID,
				Name:      strings.TrimSpace(v.Name),
				Stock:     v.Stock,
				Price:     v.Price,
			})
		}
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, apperr.Persistence(op, err)
	}

	uc.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("shop_id", p.ShopID),
		zap.String("kind", string(p.Kind)),
	)

	// Invalidate Cache
	go uc.invalidateProductCache(context.Background(), p.ShopID)

	// Sync to Elastic
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func validateVariant(op string, i int, v *dto.CreateVariantInput) error {
	if strings.TrimSpace(v.Name) == "" {
		return apperr.Validation(op, "variant %d: name is required", i+1)
	}
	if v.Stock < 0 {
		return apperr.Validation(op, "variant %d: stock must not be negative", i+1)
	}
	if v.Price.IsNegative() {
		return apperr.Validation(op, "variant %d: price must not be negative", i+1)
	}
	return nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}

	mapping := `{
		"mappings": {
			"properties": {
				"shop_id": { "type": "keyword" },
				"catalog_id": { "type": "keyword" },
				"name": { "type": "text" },
				"description": { "type": "text" },
				"category": { "type": "keyword" },
				"unit": { "type": "keyword" },
				"stock": { "type": "double" },
				"created_at": { "type": "date" }
			}
		}
	}`
	_ = uc.es.CreateIndex(ctx, productsIndex, mapping)

	if err := uc.es.Index(ctx, productsIndex, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("getProduct", err)
	}
	if p == nil {
		return nil, apperr.NotFound("getProduct", "product %s not found", id)
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	const op = "listProducts"

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}

	// 1. Check Cache
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		var result cachedList
		if err := uc.cache.GetJSON(ctx, cacheKey, &result); err == nil {
			return result.Products, result.Count, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("product cache read failed", zap.Error(err))
		}
	}

	// 2. Search via Elastic (if query present)
	if filters.SearchQuery != "" && uc.es != nil {
		products, total, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return products, total, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	// 3. DB Query (Fallback or Standard List)
	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, apperr.Persistence(op, err)
	}

	// 4. Set Cache
	if cacheKey != "" && uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, cacheKey, cachedList{Products: products, Count: count}, 5*time.Minute); err != nil {
			uc.logger.Warn("product cache write failed", zap.Error(err))
		}
	}

	return products, count, nil
}

func (uc *productUseCase) searchElastic(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
				"fields": []string{"name^3", "category", "description"},
			},
		},
	}
	if filters.ShopID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"shop_id": filters.ShopID},
		})
	}

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"from": (filters.Page - 1) * filters.PageSize,
		"size": filters.PageSize,
	}

	res, err := uc.es.Search(ctx, productsIndex, q)
	if err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err == nil {
			products = append(products, p)
		}
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%s:%x", shopScope(filters.ShopID), md5.Sum(data)), nil
}

// invalidateProductCache drops the listings of shopID and the cross-shop listings.
func (uc *productUseCase) invalidateProductCache(ctx context.Context, shopID string) {
	if uc.cache == nil {
		return
	}
	for _, scope := range []string{shopScope(shopID), shopScope("")} {
		if err := uc.cache.DeletePattern(ctx, fmt.Sprintf("products:list:%s:*", scope)); err != nil {
			uc.logger.Warn("product cache invalidation failed", zap.Error(err))
		}
	}
}

func shopScope(shopID string) string {
	if shopID == "" {
		return "all"
	}
	return shopID
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	const op = "updateProduct"

	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if p == nil {
		return nil, apperr.NotFound(op, "product %s not found", input.ID)
	}

	// Update fields
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation(op, "name must not be empty")
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.CatalogID != nil {
		if *input.CatalogID == "" {
			p.CatalogID = nil
		} else {
			catalogID := *input.CatalogID
			p.CatalogID = &catalogID
		}
	}
	if input.Unit != nil {
		unit, ok := units.ParseUnit(*input.Unit)
		if !ok {
			return nil, apperr.Validation(op, "invalid unit %q", *input.Unit)
		}
		p.Unit = unit
	}
	if input.BasePrice != nil {
		if !input.BasePrice.IsPositive() {
			return nil, apperr.Validation(op, "base price must be positive")
		}
		p.BasePrice = *input.BasePrice
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperr.Validation(op, "stock must not be negative")
		}
		if p.HasVariants() {
			return nil, apperr.Validation(op, "stock of a product with variants is tracked per variant")
		}
	}
	if input.Metadata != nil {
		p.Metadata = input.Metadata
	}

	p.UpdatedAt = uc.now()
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.repo.Update(ctx, p); err != nil {
			return apperr.Persistence(op, err)
		}
		if input.Stock == nil {
			return nil
		}
		ok, err := uc.repo.SetStock(ctx, p.ID, *input.Stock, p.UpdatedAt)
		if err != nil {
			return apperr.Persistence(op, err)
		}
		if !ok {
			return apperr.Validation(op, "stock of a product with variants is tracked per variant")
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	// Stock may have moved since the read above.
	if p, err = uc.repo.FindByID(ctx, p.ID); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if p == nil {
		return nil, apperr.NotFound(op, "product %s not found", input.ID)
	}

	// Invalidate Cache
	go uc.invalidateProductCache(context.Background(), p.ShopID)
	// Sync ES
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	const op = "deleteProduct"

	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if p == nil {
		return apperr.NotFound(op, "product %s not found", id)
	}

	deleted, err := uc.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "product %s not found", id)
	}

	uc.logger.Info("product deleted", zap.String("product_id", id), zap.String("shop_id", p.ShopID))

	// Invalidate Cache
	go uc.invalidateProductCache(context.Background(), p.ShopID)
	// Remove from ES
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), productsIndex, id); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}()
	}

	return nil
}

func (uc *productUseCase) AddVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.ProductVariant, error) {
	const op = "addVariant"

	if err := validateVariant(op, 0, input); err != nil {
		return nil, err
	}

	p, err := uc.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if p == nil {
		return nil, apperr.NotFound(op, "product %s not found", input.ProductID)
	}
	if !p.HasVariants() && p.Stock != 0 {
		return nil, apperr.Validation(op, "product %q still holds flat stock; empty it before adding variants", p.Name)
	}

	now := uc.now()
	v := &model.ProductVariant{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		ProductID: p.ID,
		Name:      strings.TrimSpace(input.Name),
		Stock:     input.Stock,
		Price:     input.Price,
	}

	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if !p.HasVariants() {
			ok, err := uc.repo.MarkVarianted(ctx, p.ID, now)
			if err != nil {
				return apperr.Persistence(op, err)
			}
			if !ok {
				return apperr.Validation(op, "product %q still holds flat stock; empty it before adding variants", p.Name)
			}
		}
		if err := uc.repo.CreateVariant(ctx, v); err != nil {
			return apperr.Persistence(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	go uc.invalidateProductCache(context.Background(), p.ShopID)

	return v, nil
}

func (uc *productUseCase) ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	const op = "listVariants"

	p, err := uc.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if p == nil {
		return nil, apperr.NotFound(op, "product %s not found", productID)
	}
	if p.Variants == nil {
		return []model.ProductVariant{}, nil
	}
	return p.Variants, nil
}

// RefreshStock drops the cached listings and re-indexes the search documents
// of products whose stock was changed by a stock workflow.
func (uc *productUseCase) RefreshStock(ctx context.Context, productIDs ...string) {
	if uc.cache == nil && uc.es == nil {
		return
	}

	invalidated := make(map[string]bool)
	for _, id := range productIDs {
		p, err := uc.repo.FindByID(ctx, id)
		if err != nil {
			uc.logger.Warn("failed to reload product after stock change", zap.String("product_id", id), zap.Error(err))
			continue
		}
		if p == nil {
			continue
		}
		if !invalidated[p.ShopID] {
			invalidated[p.ShopID] = true
			uc.invalidateProductCache(ctx, p.ShopID)
		}
		uc.syncToElastic(ctx, p)
	}
}
