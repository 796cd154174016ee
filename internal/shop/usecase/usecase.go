package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/shop"
	"github.com/fekuna/omnipos-boutique-service/internal/shop/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type Hasher interface {
	Hash(password string) (string, error)
}

type shopUseCase struct {
	repo   shop.Repository
	users  auth.UserRepository
	hasher Hasher
	tx     postgres.Transactor
	logger logger.ZapLogger
	now    func() time.Time
}

func NewShopUseCase(repo shop.Repository, users auth.UserRepository, hasher Hasher, tx postgres.Transactor, log logger.ZapLogger) shop.UseCase {
	return &shopUseCase{
		repo:   repo,
		users:  users,
		hasher: hasher,
		tx:     tx,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *shopUseCase) CreateShop(ctx context.Context, input *dto.CreateShopInput) (*model.Shop, error) {
	const op = "createShop"

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation(op, "name is required")
	}
	if err := uc.ensureNameFree(ctx, op, name, ""); err != nil {
		return nil, err
	}

	now := uc.now()
	s := &model.Shop{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:        name,
		Description: input.Description,
		Address:     input.Address,
		Phone:       input.Phone,
	}
	if input.ManagerID != "" {
		if err := uc.ensureUser(ctx, op, input.ManagerID); err != nil {
			return nil, err
		}
		managerID := input.ManagerID
		s.ManagerID = &managerID
	}

	if err := uc.repo.Create(ctx, s); err != nil {
		return nil, apperr.Persistence(op, err)
	}

	uc.logger.Info("shop created", zap.String("shop_id", s.ID), zap.String("name", s.Name))
	return s, nil
}

// ensureNameFree fails with Conflict when another shop than selfID uses name.
func (uc *shopUseCase) ensureNameFree(ctx context.Context, op, name, selfID string) error {
	existing, err := uc.repo.FindByName(ctx, name)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if existing != nil && existing.ID != selfID {
		return apperr.Conflict(op, "shop %q already exists", name)
	}
	return nil
}

func (uc *shopUseCase) ensureUser(ctx context.Context, op, id string) error {
	u, err := uc.users.FindByID(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if u == nil {
		return apperr.NotFound(op, "user %s not found", id)
	}
	return nil
}

func (uc *shopUseCase) GetShop(ctx context.Context, id string) (*model.Shop, error) {
	s, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("getShop", err)
	}
	if s == nil {
		return nil, apperr.NotFound("getShop", "shop %s not found", id)
	}
	return s, nil
}

func (uc *shopUseCase) ListShops(ctx context.Context, filters *dto.ShopFilters) ([]model.Shop, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}

	shops, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, apperr.Persistence("listShops", err)
	}
	return shops, count, nil
}

func (uc *shopUseCase) UpdateShop(ctx context.Context, input *dto.UpdateShopInput) (*model.Shop, error) {
	const op = "updateShop"

	s, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if s == nil {
		return nil, apperr.NotFound(op, "shop %s not found", input.ID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation(op, "name must not be empty")
		}
		if name != s.Name {
			if err := uc.ensureNameFree(ctx, op, name, s.ID); err != nil {
				return nil, err
			}
		}
		s.Name = name
	}
	if input.Description != nil {
		s.Description = *input.Description
	}
	if input.Address != nil {
		s.Address = *input.Address
	}
	if input.Phone != nil {
		s.Phone = *input.Phone
	}
	if input.ManagerID != nil {
		if *input.ManagerID == "" {
			s.ManagerID = nil
		} else {
			if err := uc.ensureUser(ctx, op, *input.ManagerID); err != nil {
				return nil, err
			}
			managerID := *input.ManagerID
			s.ManagerID = &managerID
		}
	}

	s.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, s); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return s, nil
}

func (uc *shopUseCase) DeleteShop(ctx context.Context, id string) error {
	const op = "deleteShop"

	s, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if s == nil {
		return apperr.NotFound(op, "shop %s not found", id)
	}

	n, err := uc.repo.CountProducts(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if n > 0 {
		return apperr.Conflict(op, "shop %q still has %d products", s.Name, n)
	}

	deleted, err := uc.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "shop %s not found", id)
	}

	uc.logger.Info("shop deleted", zap.String("shop_id", id))
	return nil
}

func (uc *shopUseCase) SeedShops(ctx context.Context, inputs []dto.SeedShopInput) (*dto.SeedResult, error) {
	const op = "seedShops"

	if len(inputs) == 0 {
		return nil, apperr.Validation(op, "at least one shop is required")
	}

	res := &dto.SeedResult{Created: []dto.SeededShop{}, Skipped: []string{}}
	for i, in := range inputs {
		seeded, reason, err := uc.seedOne(ctx, i, in)
		if err != nil {
			return res, apperr.Persistence(op, err)
		}
		if reason != "" {
			res.Skipped = append(res.Skipped, reason)
			continue
		}
		res.Created = append(res.Created, *seeded)
	}

	uc.logger.Info("shops seeded", zap.Int("created", len(res.Created)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (uc *shopUseCase) seedOne(ctx context.Context, i int, in dto.SeedShopInput) (*dto.SeededShop, string, error) {
	name := strings.TrimSpace(in.Name)
	username := strings.TrimSpace(in.Manager.Username)

	switch {
	case name == "":
		return nil, fmt.Sprintf("entry %d: name is required", i+1), nil
	case username == "" || in.Manager.Password == "":
		return nil, fmt.Sprintf("shop %q: manager username and password are required", name), nil
	case len(in.Manager.Password) < minPasswordLength:
		return nil, fmt.Sprintf("shop %q: manager password must be at least %d characters", name, minPasswordLength), nil
	}

	existing, err := uc.repo.FindByName(ctx, name)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, fmt.Sprintf("shop %q already exists", name), nil
	}
	taken, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if taken != nil {
		return nil, fmt.Sprintf("shop %q: username %q is already taken", name, username), nil
	}

	hash, err := uc.hasher.Hash(in.Manager.Password)
	if err != nil {
		return nil, "", err
	}

	now := uc.now()
	shopID := uuid.New().String()
	manager := &model.User{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleManager,
		ShopID:       &shopID,
	}
	s := &model.Shop{
		BaseModel:   model.BaseModel{ID: shopID, CreatedAt: now, UpdatedAt: now},
		Name:        name,
		Description: in.Description,
		Address:     in.Address,
		Phone:       in.Phone,
		ManagerID:   &manager.ID,
	}

	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.users.Create(ctx, manager); err != nil {
			return err
		}
		return uc.repo.Create(ctx, s)
	})
	if err != nil {
		return nil, "", err
	}

	return &dto.SeededShop{Shop: s, Manager: manager}, "", nil
}
