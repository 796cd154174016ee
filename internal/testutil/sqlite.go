// Package testutil opens throwaway SQLite databases carrying the production
// schema, so repositories can be exercised without a PostgreSQL server.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/fekuna/omnipos-boutique-service/migrations"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// NewDB returns a private in-memory database with migrations applied.
// A single connection keeps every statement on the same database.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.New().String())
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.Migrate(context.Background(), db, migrations.FS))
	return db
}

func CreateShop(t *testing.T, db *sqlx.DB, name string) *model.Shop {
	t.Helper()

	now := time.Now().UTC()
	s := &model.Shop{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
	}
	_, err := db.NamedExec(`
        INSERT INTO shops (id, name, description, address, phone, manager_id, created_at, updated_at)
        VALUES (:id, :name, :description, :address, :phone, :manager_id, :created_at, :updated_at)`, s)
	require.NoError(t, err)
	return s
}

type ProductOption func(*model.Product)

func WithCatalogID(id string) ProductOption {
	return func(p *model.Product) { p.CatalogID = &id }
}

// WithVariants makes the product varianted; each entry is name -> stock, price 10.
func WithVariants(stocks map[string]float64) ProductOption {
	return func(p *model.Product) {
		p.Kind = model.ProductKindVarianted
		p.Stock = 0
		for name, stock := range stocks {
			p.Variants = append(p.Variants, model.ProductVariant{
				BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: p.CreatedAt, UpdatedAt: p.CreatedAt},
				ProductID: p.ID,
				Name:      name,
				Stock:     stock,
				Price:     decimal.NewFromInt(10),
			})
		}
	}
}

func CreateProduct(t *testing.T, db *sqlx.DB, shopID, name string, stock float64, unit units.Unit, basePrice int64, opts ...ProductOption) *model.Product {
	t.Helper()

	now := time.Now().UTC()
	p := &model.Product{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		ShopID:    shopID,
		Name:      name,
		Kind:      model.ProductKindSimple,
		Stock:     stock,
		Unit:      unit,
		BasePrice: decimal.NewFromInt(basePrice),
	}
	for _, opt := range opts {
		opt(p)
	}

	_, err := db.NamedExec(`
        INSERT INTO products (
            id, shop_id, catalog_id, name, description, category, kind,
            stock, unit, base_price, metadata, created_at, updated_at
        )
        VALUES (
            :id, :shop_id, :catalog_id, :name, :description, :category, :kind,
            :stock, :unit, :base_price, :metadata, :created_at, :updated_at
        )`, p)
	require.NoError(t, err)

	for i := range p.Variants {
		_, err := db.NamedExec(`
            INSERT INTO product_variants (id, product_id, name, stock, price, created_at, updated_at)
            VALUES (:id, :product_id, :name, :stock, :price, :created_at, :updated_at)`, &p.Variants[i])
		require.NoError(t, err)
	}
	return p
}

func ProductStock(t *testing.T, db *sqlx.DB, id string) float64 {
	t.Helper()

	var stock float64
	require.NoError(t, db.Get(&stock, db.Rebind(`SELECT stock FROM products WHERE id = ?`), id))
	return stock
}

func VariantStock(t *testing.T, db *sqlx.DB, id string) float64 {
	t.Helper()

	var stock float64
	require.NoError(t, db.Get(&stock, db.Rebind(`SELECT stock FROM product_variants WHERE id = ?`), id))
	return stock
}

func CountRows(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.Get(&n, "SELECT count(*) FROM "+table))
	return n
}
