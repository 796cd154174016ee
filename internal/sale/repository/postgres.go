package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/sale/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
	tx postgres.Transactor
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db, tx: postgres.NewTxManager(db)}
}

const insertSaleQuery = `
    INSERT INTO sales (id, shop_id, total_amount, created_at, updated_at)
    VALUES (:id, :shop_id, :total_amount, :created_at, :updated_at)
`

const insertSaleItemQuery = `
    INSERT INTO sale_items (
        id, sale_id, position, product_id, product_name, variant_id, variant_name,
        quantity, unit, quantity_base, base_unit, unit_price, total
    )
    VALUES (
        :id, :sale_id, :position, :product_id, :product_name, :variant_id, :variant_name,
        :quantity, :unit, :quantity_base, :base_unit, :unit_price, :total
    )
`

func (r *PGRepository) Create(ctx context.Context, s *model.Sale) error {
	return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		db := postgres.Conn(ctx, r.DB)

		if _, err := db.NamedExecContext(ctx, insertSaleQuery, s); err != nil {
			return fmt.Errorf("failed to insert sale: %w", err)
		}
		for i := range s.Items {
			s.Items[i].SaleID = s.ID
			s.Items[i].Position = i
			if _, err := db.NamedExecContext(ctx, insertSaleItemQuery, &s.Items[i]); err != nil {
				return fmt.Errorf("failed to insert sale item: %w", err)
			}
		}
		return nil
	})
}

func whereClause(f *dto.SaleFilters) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if f.ShopID != "" {
		conditions = append(conditions, "shop_id = ?")
		args = append(args, f.ShopID)
	}
	if f.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, f.To.UTC())
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// FindAll returns the requested page, newest first, with items attached.
func (r *PGRepository) FindAll(ctx context.Context, f *dto.SaleFilters) ([]model.Sale, error) {
	where, args := whereClause(f)

	query := "SELECT * FROM sales" + where + " ORDER BY created_at DESC, id DESC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	sales := []model.Sale{}
	if err := r.DB.SelectContext(ctx, &sales, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	if err := r.attachItems(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *PGRepository) attachItems(ctx context.Context, sales []model.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}

	query, args, err := sqlx.In(`SELECT * FROM sale_items WHERE sale_id IN (?) ORDER BY position`, ids)
	if err != nil {
		return err
	}

	var items []model.SaleItem
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load sale items: %w", err)
	}

	bySale := make(map[string][]model.SaleItem, len(sales))
	for _, it := range items {
		bySale[it.SaleID] = append(bySale[it.SaleID], it)
	}
	for i := range sales {
		sales[i].Items = bySale[sales[i].ID]
		if sales[i].Items == nil {
			sales[i].Items = []model.SaleItem{}
		}
	}
	return nil
}

func (r *PGRepository) Summarize(ctx context.Context, f *dto.SaleFilters) (*dto.Summary, error) {
	where, args := whereClause(f)

	var s dto.Summary
	query := "SELECT COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount FROM sales" + where
	if err := r.DB.GetContext(ctx, &s, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to summarize sales: %w", err)
	}
	return &s, nil
}

// ListItems returns every item sold in [from, to], optionally within one shop.
func (r *PGRepository) ListItems(ctx context.Context, shopID string, from, to time.Time) ([]model.SaleItem, error) {
	query := `
        SELECT si.* FROM sale_items si
        JOIN sales s ON s.id = si.sale_id
        WHERE s.created_at >= ? AND s.created_at <= ?`
	args := []interface{}{from.UTC(), to.UTC()}
	if shopID != "" {
		query += " AND s.shop_id = ?"
		args = append(args, shopID)
	}

	items := []model.SaleItem{}
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}
	return items, nil
}
