// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"authgate/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// LoginInput defines the data required to authenticate on a channel.
type LoginInput struct {
	Channel   int
	RequestID string
	Account   string
	Password  string
	Mac       string
	IPAddr    string
	ValidID   string
	ValidCode string
	IDToken   string
}

// RegisterInput defines the data required to register an account on a channel.
type RegisterInput struct {
	Channel  int
	Account  string
	Password string
	Mobile   string
}

// ModifyPasswordInput defines the data required for a user to change their own password.
type ModifyPasswordInput struct {
	Channel     int
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// AuthenUsecase dispatches every account operation to the backends configured for a channel,
// in order, until one of them produces a result.
type AuthenUsecase interface {
	Authenticate(ctx context.Context, input *LoginInput) (*entity.UserCertificate, error)
	Logout(ctx context.Context, channel int, userID uuid.UUID) (bool, error)
	ModifyPassword(ctx context.Context, input *ModifyPasswordInput) (bool, error)
	ForceModifyPassword(ctx context.Context, channel int, userID uuid.UUID, newPassword string) (bool, error)
	ResetPassword(ctx context.Context, channel int, userID uuid.UUID) (bool, error)
	Register(ctx context.Context, input *RegisterInput) (*entity.UserAccount, error)
	LoadUserByID(ctx context.Context, channel int, userID uuid.UUID) (*entity.UserInfo, error)
	LoadUserByToken(ctx context.Context, channel int, token string) (*entity.TokenUserData, error)
	LoadUserByRefreshToken(ctx context.Context, channel int, refreshToken string) (*entity.TokenUserData, error)
	LoadLastRefreshTokenByUser(ctx context.Context, channel int, userID uuid.UUID) (string, error)
}
