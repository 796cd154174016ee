package auth

import (
	"context"

	"github.com/fekuna/omnipos-boutique-service/internal/auth/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
)

type UseCase interface {
	Login(ctx context.Context, input *dto.LoginInput) (*dto.LoginResult, error)
	Logout(ctx context.Context, user *UserContext) error
	Me(ctx context.Context, userID string) (*model.User, error)
	// Authenticate verifies a bearer token and rejects revoked ones.
	Authenticate(ctx context.Context, token string) (*UserContext, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}
