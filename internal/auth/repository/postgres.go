package repository

import (
	"context"
	"database/sql"
	"errors"

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

func (r *PGRepository) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, username, password_hash, role, shop_id, created_at, updated_at)
        VALUES (:id, :username, :password_hash, :role, :shop_id, :created_at, :updated_at)
    `
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, u)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE id = ? LIMIT 1`, id)
}

func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE username = ? LIMIT 1`, username)
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	db := postgres.Conn(ctx, r.DB)

	var u model.User
	if err := db.GetContext(ctx, &u, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
