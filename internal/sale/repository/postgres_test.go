package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/sale/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/sale/repository"
	"github.com/fekuna/omnipos-boutique-service/internal/testutil"
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSale(shopID string, at time.Time, totals ...int64) *model.Sale {
	s := &model.Sale{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: at, UpdatedAt: at},
		ShopID:      &shopID,
		TotalAmount: decimal.Zero,
	}
	for i, total := range totals {
		s.Items = append(s.Items, model.SaleItem{
			ID:           uuid.New().String(),
			ProductID:    "product-" + string(rune('a'+i)),
			ProductName:  "Product",
			Quantity:     1,
			Unit:         units.Piece,
			QuantityBase: 1,
			BaseUnit:     units.Piece,
			UnitPrice:    decimal.NewFromInt(total),
			Total:        decimal.NewFromInt(total),
		})
		s.TotalAmount = s.TotalAmount.Add(decimal.NewFromInt(total))
	}
	return s
}

func seed(t *testing.T, db *sqlx.DB, sales ...*model.Sale) {
	t.Helper()
	repo := repository.NewPGRepository(db)
	for _, s := range sales {
		require.NoError(t, repo.Create(context.Background(), s))
	}
}

func TestCreate_PersistsItemsInOrder(t *testing.T) {
	db := testutil.NewDB(t)
	shop := testutil.CreateShop(t, db, "Plateau")
	repo := repository.NewPGRepository(db)
	s := newSale(shop.ID, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), 30, 10, 20)

	require.NoError(t, repo.Create(context.Background(), s))

	got, err := repo.FindAll(context.Background(), &dto.SaleFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Items, 3)
	for i, it := range got[0].Items {
		assert.Equal(t, i, it.Position)
		assert.Equal(t, s.ID, it.SaleID)
	}
	assert.True(t, got[0].Items[0].Total.Equal(decimal.NewFromInt(30)))
	assert.True(t, got[0].TotalAmount.Equal(decimal.NewFromInt(60)))
}

func TestFindAll_PagesNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	shop := testutil.CreateShop(t, db, "Plateau")
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		s := newSale(shop.ID, base.Add(time.Duration(i)*time.Hour), 10)
		ids = append(ids, s.ID)
		seed(t, db, s)
	}
	repo := repository.NewPGRepository(db)

	page1, err := repo.FindAll(context.Background(), &dto.SaleFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	page3, err := repo.FindAll(context.Background(), &dto.SaleFilters{Page: 3, PageSize: 2})
	require.NoError(t, err)

	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)
	require.Len(t, page3, 1)
	assert.Equal(t, ids[0], page3[0].ID)
}

func TestFiltersAndSummary(t *testing.T) {
	db := testutil.NewDB(t)
	plateau := testutil.CreateShop(t, db, "Plateau")
	cocody := testutil.CreateShop(t, db, "Cocody")
	jan := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

	seed(t, db,
		newSale(plateau.ID, jan, 100),
		newSale(plateau.ID, feb, 40, 60),
		newSale(cocody.ID, feb, 25),
	)
	repo := repository.NewPGRepository(db)
	ctx := context.Background()

	t.Run("everything", func(t *testing.T) {
		sum, err := repo.Summarize(ctx, &dto.SaleFilters{})
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Count)
		assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(225)), "total %s", sum.TotalAmount)
	})

	t.Run("one shop", func(t *testing.T) {
		sum, err := repo.Summarize(ctx, &dto.SaleFilters{ShopID: plateau.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, sum.Count)
		assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(200)))
	})

	t.Run("date range", func(t *testing.T) {
		from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		sales, err := repo.FindAll(ctx, &dto.SaleFilters{From: &from, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, sales, 2)

		sum, err := repo.Summarize(ctx, &dto.SaleFilters{From: &from})
		require.NoError(t, err)
		assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(125)))
	})

	t.Run("empty range", func(t *testing.T) {
		from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		sum, err := repo.Summarize(ctx, &dto.SaleFilters{From: &from})
		require.NoError(t, err)
		assert.Equal(t, 0, sum.Count)
		assert.True(t, sum.TotalAmount.IsZero())
	})

	t.Run("items in window", func(t *testing.T) {
		from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		items, err := repo.ListItems(ctx, plateau.ID, from, to)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		items, err = repo.ListItems(ctx, "", from, to)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})
}
