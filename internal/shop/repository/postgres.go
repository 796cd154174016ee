package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/shop/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, s *model.Shop) error {
	query := `
        INSERT INTO shops (id, name, description, address, phone, manager_id, created_at, updated_at)
        VALUES (:id, :name, :description, :address, :phone, :manager_id, :created_at, :updated_at)
    `
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, s)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Shop, error) {
	return r.findOne(ctx, `SELECT * FROM shops WHERE id = ? LIMIT 1`, id)
}

func (r *PGRepository) FindByName(ctx context.Context, name string) (*model.Shop, error) {
	return r.findOne(ctx, `SELECT * FROM shops WHERE name = ? LIMIT 1`, name)
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Shop, error) {
	db := postgres.Conn(ctx, r.DB)

	var s model.Shop
	if err := db.GetContext(ctx, &s, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ShopFilters) ([]model.Shop, int, error) {
	shops := []model.Shop{}
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.SearchQuery != "" {
		conditions = append(conditions, "(LOWER(name) LIKE :search OR LOWER(address) LIKE :search)")
		args["search"] = "%" + strings.ToLower(f.SearchQuery) + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM shops"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM shops" + whereClause + " ORDER BY name, id"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}
	listQuery, listArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.SelectContext(ctx, &shops, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}

	return shops, count, nil
}

func (r *PGRepository) Update(ctx context.Context, s *model.Shop) error {
	query := `
        UPDATE shops
        SET name = :name,
            description = :description,
            address = :address,
            phone = :phone,
            manager_id = :manager_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, s)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM shops WHERE id = ?"), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PGRepository) CountProducts(ctx context.Context, shopID string) (int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, r.DB.Rebind(`SELECT count(*) FROM products WHERE shop_id = ?`), shopID)
	return count, err
}
