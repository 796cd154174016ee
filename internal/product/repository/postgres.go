package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/product/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertProductQuery = `
    INSERT INTO products (
        id, shop_id, catalog_id, name, description, category, kind,
        stock, unit, base_price, metadata, created_at, updated_at
    )
    VALUES (
        :id, :shop_id, :catalog_id, :name, :description, :category, :kind,
        :stock, :unit, :base_price, :metadata, :created_at, :updated_at
    )
`

const insertVariantQuery = `
    INSERT INTO product_variants (id, product_id, name, stock, price, created_at, updated_at)
    VALUES (:id, :product_id, :name, :stock, :price, :created_at, :updated_at)
`

// Create inserts the product and its variants in one transaction.
func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertProductQuery, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	for i := range p.Variants {
		if _, err := tx.NamedExecContext(ctx, insertVariantQuery, &p.Variants[i]); err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	db := postgres.Conn(ctx, r.DB)

	var product model.Product
	err := db.GetContext(ctx, &product, db.Rebind(`SELECT * FROM products WHERE id = ? LIMIT 1`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if product.HasVariants() {
		variants, err := r.ListVariants(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		product.Variants = variants
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var products []model.Product
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ShopID != "" {
		conditions = append(conditions, "shop_id = :shop_id")
		args["shop_id"] = f.ShopID
	}
	if f.Category != "" {
		conditions = append(conditions, "category = :category")
		args["category"] = f.Category
	}
	if f.SearchQuery != "" {
		// LOWER/LIKE instead of ILIKE keeps the query portable.
		conditions = append(conditions, "(LOWER(name) LIKE :search OR LOWER(category) LIKE :search)")
		args["search"] = "%" + strings.ToLower(f.SearchQuery) + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Count
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM products"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	// List
	orderBy := "created_at DESC"
	if f.SortBy != "" {
		// Whitelisted, never interpolated from input.
		switch f.SortBy {
		case "name":
			orderBy = "name"
		case "price":
			orderBy = "base_price"
		case "stock":
			orderBy = "stock"
		default:
			orderBy = "created_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s, id", whereClause, orderBy)
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	listQuery, listArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, 0, err
	}

	return products, count, nil
}

// attachVariants loads the variants of every varianted product in one query.
func (r *PGRepository) attachVariants(ctx context.Context, products []model.Product) error {
	ids := []string{}
	for _, p := range products {
		if p.HasVariants() {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
        SELECT * FROM product_variants
        WHERE product_id IN (?)
        ORDER BY created_at, id
    `, ids)
	if err != nil {
		return err
	}

	var variants []model.ProductVariant
	if err := r.DB.SelectContext(ctx, &variants, r.DB.Rebind(query), args...); err != nil {
		return err
	}

	byProduct := make(map[string][]model.ProductVariant, len(ids))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	for i := range products {
		products[i].Variants = byProduct[products[i].ID]
	}
	return nil
}

// Update writes the descriptive columns. Stock and kind have their own
// statements so a concurrent stock workflow is never overwritten.
func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET catalog_id = :catalog_id,
            name = :name,
            description = :description,
            category = :category,
            unit = :unit,
            base_price = :base_price,
            metadata = :metadata,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM products WHERE id = ?"), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PGRepository) ShopExists(ctx context.Context, shopID string) (bool, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, r.DB.Rebind(`SELECT count(*) FROM shops WHERE id = ?`), shopID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PGRepository) CreateVariant(ctx context.Context, v *model.ProductVariant) error {
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, insertVariantQuery, v)
	return err
}

func (r *PGRepository) ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	db := postgres.Conn(ctx, r.DB)

	variants := []model.ProductVariant{}
	err := db.SelectContext(ctx, &variants,
		db.Rebind(`SELECT * FROM product_variants WHERE product_id = ? ORDER BY created_at, id`), productID)
	return variants, err
}

// SetStock replaces the flat stock of a simple product. It reports false when
// no simple product with that id exists.
func (r *PGRepository) SetStock(ctx context.Context, productID string, stock float64, at time.Time) (bool, error) {
	return r.execAffected(ctx, `UPDATE products SET stock = ?, updated_at = ? WHERE id = ? AND kind = ?`,
		stock, at, productID, model.ProductKindSimple)
}

// MarkVarianted switches a product to per-variant stock. Only an empty simple
// product (or an already varianted one) qualifies.
func (r *PGRepository) MarkVarianted(ctx context.Context, productID string, at time.Time) (bool, error) {
	return r.execAffected(ctx, `
        UPDATE products SET kind = ?, updated_at = ?
        WHERE id = ? AND (kind = ? OR stock = 0)`,
		model.ProductKindVarianted, at, productID, model.ProductKindVarianted)
}

func (r *PGRepository) execAffected(ctx context.Context, query string, args ...interface{}) (bool, error) {
	db := postgres.Conn(ctx, r.DB)
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
