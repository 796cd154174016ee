package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/auth/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Revoker remembers logged out token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

type authUseCase struct {
	users   auth.UserRepository
	jwt     *auth.JWTManager
	hasher  *auth.PasswordHasher
	revoker Revoker
	logger  logger.ZapLogger
	now     func() time.Time
}

func NewAuthUseCase(users auth.UserRepository, jwt *auth.JWTManager, hasher *auth.PasswordHasher, revoker Revoker, log logger.ZapLogger) auth.UseCase {
	return &authUseCase{
		users:   users,
		jwt:     jwt,
		hasher:  hasher,
		revoker: revoker,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *authUseCase) Login(ctx context.Context, input *dto.LoginInput) (*dto.LoginResult, error) {
	const op = "login"

	if strings.TrimSpace(input.Username) == "" || input.Password == "" {
		return nil, apperr.Validation(op, "username and password are required")
	}

	u, err := uc.users.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if u == nil || !uc.hasher.Verify(input.Password, u.PasswordHash) {
		return nil, apperr.Unauthorized(op, "invalid username or password")
	}

	token, claims, err := uc.jwt.Generate(u)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	uc.logger.Info("user logged in", zap.String("user_id", u.ID), zap.String("role", u.Role))

	return &dto.LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u,
	}, nil
}

func (uc *authUseCase) Logout(ctx context.Context, user *auth.UserContext) error {
	const op = "logout"

	if user == nil || user.TokenID == "" {
		return apperr.Unauthorized(op, "not authenticated")
	}

	ttl := user.ExpiresAt.Sub(uc.now())
	if ttl <= 0 {
		return nil
	}
	if err := uc.revoker.Revoke(ctx, user.TokenID, ttl); err != nil {
		return apperr.Persistence(op, err)
	}

	uc.logger.Info("user logged out", zap.String("user_id", user.UserID))
	return nil
}

func (uc *authUseCase) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("me", err)
	}
	if u == nil {
		return nil, apperr.NotFound("me", "user %s not found", userID)
	}
	return u, nil
}

func (uc *authUseCase) Authenticate(ctx context.Context, token string) (*auth.UserContext, error) {
	const op = "authenticate"

	claims, err := uc.jwt.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperr.Unauthorized(op, "token has expired")
		}
		return nil, apperr.Unauthorized(op, "invalid token")
	}

	revoked, err := uc.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if revoked {
		return nil, apperr.Unauthorized(op, "token has been revoked")
	}

	return &auth.UserContext{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		ShopID:    claims.ShopID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// EnsureAdmin creates the admin account on first start.
func (uc *authUseCase) EnsureAdmin(ctx context.Context, username, password string) error {
	const op = "ensureAdmin"

	if username == "" || password == "" {
		return nil
	}

	existing, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if existing != nil {
		return nil
	}

	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return apperr.Persistence(op, err)
	}

	now := uc.now()
	admin := &model.User{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := uc.users.Create(ctx, admin); err != nil {
		return apperr.Persistence(op, err)
	}

	uc.logger.Info("admin user bootstrapped", zap.String("username", username))
	return nil
}
