package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/inventory"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindProduct(ctx context.Context, id string) (*model.Product, error) {
	return r.findOne(ctx, `SELECT * FROM products WHERE id = ? LIMIT 1`, id)
}

func (r *PGRepository) FindInShopByCatalogID(ctx context.Context, shopID, catalogID string) (*model.Product, error) {
	return r.findOne(ctx, `
        SELECT * FROM products
        WHERE shop_id = ? AND catalog_id = ?
        ORDER BY created_at, id
        LIMIT 1`, shopID, catalogID)
}

func (r *PGRepository) FindInShopByName(ctx context.Context, shopID, name string) (*model.Product, error) {
	return r.findOne(ctx, `
        SELECT * FROM products
        WHERE shop_id = ? AND name = ?
        ORDER BY created_at, id
        LIMIT 1`, shopID, name)
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Product, error) {
	db := postgres.Conn(ctx, r.DB)

	var p model.Product
	if err := db.GetContext(ctx, &p, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if p.HasVariants() {
		p.Variants = []model.ProductVariant{}
		err := db.SelectContext(ctx, &p.Variants,
			db.Rebind(`SELECT * FROM product_variants WHERE product_id = ? ORDER BY created_at, id`), p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load variants: %w", err)
		}
	}
	return &p, nil
}

// IncrementStock only touches simple products; a row switched to per-variant
// stock in the meantime reports ErrStockRowNotFound.
func (r *PGRepository) IncrementStock(ctx context.Context, productID string, delta float64, at time.Time) (float64, error) {
	return r.adjust(ctx, inventory.ErrStockRowNotFound, `
        UPDATE products SET stock = stock + ?, updated_at = ?
        WHERE id = ? AND kind = ?
        RETURNING stock`, delta, at, productID, model.ProductKindSimple)
}

// DecrementStock subtracts delta only while the row still holds it, so two
// concurrent sales can never drive stock below zero.
func (r *PGRepository) DecrementStock(ctx context.Context, productID string, delta float64, at time.Time) (float64, error) {
	return r.adjust(ctx, inventory.ErrInsufficientStock, `
        UPDATE products SET stock = stock - ?, updated_at = ?
        WHERE id = ? AND stock >= ?
        RETURNING stock`, delta, at, productID, delta)
}

func (r *PGRepository) IncrementVariantStock(ctx context.Context, variantID string, delta float64, at time.Time) (float64, error) {
	return r.adjust(ctx, inventory.ErrStockRowNotFound, `
        UPDATE product_variants SET stock = stock + ?, updated_at = ?
        WHERE id = ?
        RETURNING stock`, delta, at, variantID)
}

func (r *PGRepository) DecrementVariantStock(ctx context.Context, variantID string, delta float64, at time.Time) (float64, error) {
	return r.adjust(ctx, inventory.ErrInsufficientStock, `
        UPDATE product_variants SET stock = stock - ?, updated_at = ?
        WHERE id = ? AND stock >= ?
        RETURNING stock`, delta, at, variantID, delta)
}

// adjust runs a single-row stock update and returns noRow when nothing matched.
func (r *PGRepository) adjust(ctx context.Context, noRow error, query string, args ...interface{}) (float64, error) {
	db := postgres.Conn(ctx, r.DB)

	var stock float64
	if err := db.GetContext(ctx, &stock, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, noRow
		}
		return 0, fmt.Errorf("failed to update stock: %w", err)
	}
	return stock, nil
}

func (r *PGRepository) ListLowStock(ctx context.Context, threshold float64, shopID string) ([]model.Product, error) {
	query := `SELECT * FROM products WHERE kind = ? AND stock <= ?`
	args := []interface{}{model.ProductKindSimple, threshold}
	if shopID != "" {
		query += ` AND shop_id = ?`
		args = append(args, shopID)
	}
	query += ` ORDER BY stock ASC, name`

	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	return products, nil
}
