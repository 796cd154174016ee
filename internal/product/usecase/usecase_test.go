package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	invRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/product"
	"github.com/fekuna/omnipos-boutique-service/internal/product/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/product/repository"
	"github.com/fekuna/omnipos-boutique-service/internal/product/usecase"
	"github.com/fekuna/omnipos-boutique-service/internal/testutil"
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/fekuna/omnipos-boutique-service/pkg/cache"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/fekuna/omnipos-boutique-service/pkg/search"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	patterns []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	return nil
}

func (c *memoryCache) deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.patterns...)
}

type stubIndexer struct {
	mu      sync.Mutex
	indexed []string
	result  *search.SearchResponse
	err     error
}

func (s *stubIndexer) CreateIndex(context.Context, string, string) error { return nil }

func (s *stubIndexer) Index(_ context.Context, _, id string, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed = append(s.indexed, id)
	return nil
}

func (s *stubIndexer) Search(context.Context, string, map[string]interface{}) (*search.SearchResponse, error) {
	return s.result, s.err
}

func (s *stubIndexer) Delete(context.Context, string, string) error { return nil }

func (s *stubIndexer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indexed)
}

// stockMovesAfterRead lets a stock workflow commit right after the use case
// has read the product, the way a concurrent sale would.
type stockMovesAfterRead struct {
	product.Repository
	once sync.Once
	move func(id string)
}

func (r *stockMovesAfterRead) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := r.Repository.FindByID(ctx, id)
	r.once.Do(func() { r.move(id) })
	return p, err
}

type failingCreateVariant struct {
	product.Repository
}

func (failingCreateVariant) CreateVariant(context.Context, *model.ProductVariant) error {
	return errors.New("disk full")
}

func productKind(t *testing.T, db *sqlx.DB, id string) model.ProductKind {
	t.Helper()
	var kind model.ProductKind
	require.NoError(t, db.Get(&kind, db.Rebind(`SELECT kind FROM products WHERE id = ?`), id))
	return kind
}

func setup(t *testing.T, c usecase.ListCache, es usecase.Indexer) (product.UseCase, *sqlx.DB, *model.Shop) {
	t.Helper()
	db := testutil.NewDB(t)
	shop := testutil.CreateShop(t, db, "Plateau")
	uc := usecase.NewProductUseCase(repository.NewPGRepository(db), postgres.NewTxManager(db), c, es, logger.NewNop())
	return uc, db, shop
}

func TestCreateProduct(t *testing.T) {
	uc, db, shop := setup(t, nil, nil)
	ctx := context.Background()

	t.Run("simple product", func(t *testing.T) {
		p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{
			ShopID: shop.ID, Name: "  Rice  ", Unit: "kg", BasePrice: decimal.NewFromInt(500), Stock: 100, CatalogID: "rice-25",
		})
		require.NoError(t, err)

		assert.Equal(t, "Rice", p.Name)
		assert.Equal(t, units.Kilogram, p.Unit)
		assert.Equal(t, model.ProductKindSimple, p.Kind)
		require.NotNil(t, p.CatalogID)
		assert.Equal(t, "rice-25", *p.CatalogID)
		assert.Equal(t, 100.0, testutil.ProductStock(t, db, p.ID))
	})

	t.Run("varianted product", func(t *testing.T) {
		p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{
			ShopID: shop.ID, Name: "Tee", Unit: "piece", BasePrice: decimal.NewFromInt(10),
			Variants: []dto.CreateVariantInput{{Name: "S", Stock: 2, Price: decimal.NewFromInt(10)}, {Name: "M", Stock: 3, Price: decimal.NewFromInt(12)}},
		})
		require.NoError(t, err)
		assert.Equal(t, model.ProductKindVarianted, p.Kind)

		got, err := uc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Variants, 2)
	})

	tests := []struct {
		name  string
		input dto.CreateProductInput
		kind  apperr.Kind
	}{
		{"missing shop", dto.CreateProductInput{Name: "X", Unit: "kg", BasePrice: decimal.NewFromInt(1)}, apperr.KindValidation},
		{"missing name", dto.CreateProductInput{ShopID: shop.ID, Unit: "kg", BasePrice: decimal.NewFromInt(1)}, apperr.KindValidation},
		{"unknown unit", dto.CreateProductInput{ShopID: shop.ID, Name: "X", Unit: "gallon", BasePrice: decimal.NewFromInt(1)}, apperr.KindValidation},
		{"zero price", dto.CreateProductInput{ShopID: shop.ID, Name: "X", Unit: "kg"}, apperr.KindValidation},
		{"negative stock", dto.CreateProductInput{ShopID: shop.ID, Name: "X", Unit: "kg", BasePrice: decimal.NewFromInt(1), Stock: -1}, apperr.KindValidation},
		{"flat stock with variants", dto.CreateProductInput{ShopID: shop.ID, Name: "X", Unit: "piece", BasePrice: decimal.NewFromInt(1), Stock: 4,
			Variants: []dto.CreateVariantInput{{Name: "A"}}}, apperr.KindValidation},
		{"unnamed variant", dto.CreateProductInput{ShopID: shop.ID, Name: "X", Unit: "piece", BasePrice: decimal.NewFromInt(1),
			Variants: []dto.CreateVariantInput{{Name: " "}}}, apperr.KindValidation},
		{"unknown shop", dto.CreateProductInput{ShopID: "nowhere", Name: "X", Unit: "kg", BasePrice: decimal.NewFromInt(1)}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateProduct(ctx, &tt.input)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	uc, db, shop := setup(t, nil, nil)
	ctx := context.Background()
	p := testutil.CreateProduct(t, db, shop.ID, "Oil", 10, units.Litre, 1000, testutil.WithCatalogID("oil"))

	name := "Palm oil"
	price := decimal.NewFromInt(1100)
	empty := ""
	updated, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, Name: &name, BasePrice: &price, CatalogID: &empty})
	require.NoError(t, err)

	assert.Equal(t, "Palm oil", updated.Name)
	assert.Nil(t, updated.CatalogID)
	assert.Equal(t, 10.0, updated.Stock)

	got, err := uc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Palm oil", got.Name)
	assert.True(t, got.BasePrice.Equal(price))
	assert.Nil(t, got.CatalogID)

	bad := "barrel"
	_, err = uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, Unit: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: "missing", Name: &name})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	v := testutil.CreateProduct(t, db, shop.ID, "Tee", 0, units.Piece, 10, testutil.WithVariants(map[string]float64{"S": 1}))
	stock := 5.0
	_, err = uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: v.ID, Stock: &stock})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateProduct_KeepsConcurrentStockChange(t *testing.T) {
	db := testutil.NewDB(t)
	shop := testutil.CreateShop(t, db, "Plateau")
	p := testutil.CreateProduct(t, db, shop.ID, "Rice", 100, units.Kilogram, 500)
	ctx := context.Background()

	inv := invRepoPkg.NewPGRepository(db)
	repo := &stockMovesAfterRead{
		Repository: repository.NewPGRepository(db),
		move: func(id string) {
			_, err := inv.DecrementStock(ctx, id, 40, time.Now().UTC())
			require.NoError(t, err)
		},
	}
	uc := usecase.NewProductUseCase(repo, postgres.NewTxManager(db), nil, nil, logger.NewNop())

	desc := "long grain"
	updated, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, Description: &desc})
	require.NoError(t, err)

	assert.Equal(t, 60.0, testutil.ProductStock(t, db, p.ID))
	assert.Equal(t, 60.0, updated.Stock)
	assert.Equal(t, "long grain", updated.Description)

	stock := 25.0
	updated, err = uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: p.ID, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Stock)
	assert.Equal(t, 25.0, testutil.ProductStock(t, db, p.ID))
}

func TestDeleteProduct(t *testing.T) {
	uc, db, shop := setup(t, nil, nil)
	ctx := context.Background()
	p := testutil.CreateProduct(t, db, shop.ID, "Oil", 10, units.Litre, 1000, testutil.WithVariants(map[string]float64{"1L": 3}))

	require.NoError(t, uc.DeleteProduct(ctx, p.ID))
	assert.Equal(t, 0, testutil.CountRows(t, db, "products"))
	assert.Equal(t, 0, testutil.CountRows(t, db, "product_variants"))

	err := uc.DeleteProduct(ctx, p.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestVariants(t *testing.T) {
	uc, db, shop := setup(t, nil, nil)
	ctx := context.Background()

	t.Run("first variant converts an empty simple product", func(t *testing.T) {
		p := testutil.CreateProduct(t, db, shop.ID, "Scarf", 0, units.Piece, 10)

		v, err := uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, Name: "Blue", Stock: 4, Price: decimal.NewFromInt(15)})
		require.NoError(t, err)
		assert.Equal(t, p.ID, v.ProductID)

		got, err := uc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ProductKindVarianted, got.Kind)

		variants, err := uc.ListVariants(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, variants, 1)
		assert.Equal(t, "Blue", variants[0].Name)
	})

	t.Run("product holding flat stock", func(t *testing.T) {
		p := testutil.CreateProduct(t, db, shop.ID, "Rice", 5, units.Kilogram, 10)

		_, err := uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, Name: "5kg bag"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("failed insert keeps the product simple", func(t *testing.T) {
		p := testutil.CreateProduct(t, db, shop.ID, "Cap", 0, units.Piece, 10)
		failing := usecase.NewProductUseCase(failingCreateVariant{repository.NewPGRepository(db)},
			postgres.NewTxManager(db), nil, nil, logger.NewNop())

		_, err := failing.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, Name: "Red"})
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
		assert.Equal(t, model.ProductKindSimple, productKind(t, db, p.ID))
	})

	t.Run("stock received after the check", func(t *testing.T) {
		p := testutil.CreateProduct(t, db, shop.ID, "Belt", 0, units.Piece, 10)
		inv := invRepoPkg.NewPGRepository(db)
		repo := &stockMovesAfterRead{
			Repository: repository.NewPGRepository(db),
			move: func(id string) {
				_, err := inv.IncrementStock(ctx, id, 5, time.Now().UTC())
				require.NoError(t, err)
			},
		}
		racing := usecase.NewProductUseCase(repo, postgres.NewTxManager(db), nil, nil, logger.NewNop())

		_, err := racing.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, Name: "Brown"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, model.ProductKindSimple, productKind(t, db, p.ID))
		assert.Equal(t, 5.0, testutil.ProductStock(t, db, p.ID))
		variants, err := racing.ListVariants(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, variants)
	})

	t.Run("simple product lists no variants", func(t *testing.T) {
		p := testutil.CreateProduct(t, db, shop.ID, "Salt", 5, units.Kilogram, 10)

		variants, err := uc.ListVariants(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, variants)
		assert.NotNil(t, variants)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := uc.ListVariants(ctx, "missing")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestListProducts_CacheAside(t *testing.T) {
	c := newMemoryCache()
	uc, db, shop := setup(t, c, nil)
	ctx := context.Background()
	testutil.CreateProduct(t, db, shop.ID, "Rice", 10, units.Kilogram, 500)

	first, total, err := uc.ListProducts(ctx, &dto.ProductFilters{ShopID: shop.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, first, 1)

	// A row inserted behind the use case stays invisible until invalidation.
	testutil.CreateProduct(t, db, shop.ID, "Beans", 10, units.Kilogram, 300)
	second, total, err := uc.ListProducts(ctx, &dto.ProductFilters{ShopID: shop.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, second, 1)

	_, err = uc.CreateProduct(ctx, &dto.CreateProductInput{ShopID: shop.ID, Name: "Sugar", Unit: "kg", BasePrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(c.deleted()) == 2 }, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"products:list:" + shop.ID + ":*", "products:list:all:*"}, c.deleted())
}

func TestRefreshStock(t *testing.T) {
	c := newMemoryCache()
	es := &stubIndexer{}
	uc, db, shop := setup(t, c, es)
	a := testutil.CreateProduct(t, db, shop.ID, "Rice", 10, units.Kilogram, 500)
	b := testutil.CreateProduct(t, db, shop.ID, "Beans", 10, units.Kilogram, 300)

	uc.RefreshStock(context.Background(), a.ID, b.ID, "missing")

	assert.ElementsMatch(t, []string{"products:list:" + shop.ID + ":*", "products:list:all:*"}, c.deleted())
	assert.Equal(t, 2, es.count())
}

func TestListProducts_Search(t *testing.T) {
	t.Run("served by the index", func(t *testing.T) {
		var res search.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(`{"hits":{"total":{"value":7},"hits":[{"_id":"p1","_source":{"id":"p1","name":"Rice"}}]}}`), &res))
		es := &stubIndexer{result: &res}

		uc, _, shop := setup(t, nil, es)
		products, total, err := uc.ListProducts(context.Background(), &dto.ProductFilters{ShopID: shop.ID, SearchQuery: "ric"})
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		require.Len(t, products, 1)
		assert.Equal(t, "Rice", products[0].Name)
	})

	t.Run("falls back to the database", func(t *testing.T) {
		es := &stubIndexer{err: errors.New("cluster unavailable")}
		uc, db, shop := setup(t, nil, es)
		testutil.CreateProduct(t, db, shop.ID, "Rice", 10, units.Kilogram, 500)
		testutil.CreateProduct(t, db, shop.ID, "Beans", 10, units.Kilogram, 300)

		products, total, err := uc.ListProducts(context.Background(), &dto.ProductFilters{ShopID: shop.ID, SearchQuery: "RIC"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, products, 1)
		assert.Equal(t, "Rice", products[0].Name)
	})

	t.Run("created products are indexed", func(t *testing.T) {
		es := &stubIndexer{}
		uc, _, shop := setup(t, nil, es)

		_, err := uc.CreateProduct(context.Background(), &dto.CreateProductInput{ShopID: shop.ID, Name: "Tea", Unit: "box", BasePrice: decimal.NewFromInt(3)})
		require.NoError(t, err)
		require.Eventually(t, func() bool { return es.count() == 1 }, time.Second, 10*time.Millisecond)
	})
}
