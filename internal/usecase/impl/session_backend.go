package impl

import (
	"context"
	"log/slog"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"github.com/google/uuid"
)

// sessionBackend holds the session and user-lookup operations shared by every local backend.
// Backends embed it and add their own way of proving identity.
type sessionBackend struct {
	userRepo  repository.UserRepository
	ledger    usecase.TokenLedger
	refresher usecase.RefreshCoordinator
	logger    *slog.Logger
}

func (b *sessionBackend) Logout(ctx context.Context, userID uuid.UUID) (bool, error) {
	return b.ledger.InvalidateAllForUser(ctx, userID)
}

func (b *sessionBackend) LoadUserByID(ctx context.Context, userID uuid.UUID) (*entity.UserInfo, error) {
	user, err := b.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return user.Info(), nil
}

func (b *sessionBackend) LoadUserByToken(ctx context.Context, token string) (*entity.TokenUserData, error) {
	session, err := b.ledger.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return toTokenUserData(session), nil
}

func (b *sessionBackend) LoadUserByRefreshToken(ctx context.Context, refreshToken string) (*entity.TokenUserData, error) {
	return b.refresher.Refresh(ctx, refreshToken)
}

func (b *sessionBackend) LoadLastRefreshTokenByUser(ctx context.Context, userID uuid.UUID) (string, error) {
	return b.ledger.LatestRefreshTokenForUser(ctx, userID)
}

// issue opens a session for an authenticated user.
func (b *sessionBackend) issue(ctx context.Context, user *entity.User, ipAddr, mac string) (*entity.UserCertificate, error) {
	session, err := b.ledger.Create(ctx, user.ID, ipAddr, mac)
	if err != nil {
		requestLogger(ctx, b.logger).Error("Failed to create login session", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, err
	}

	return &entity.UserCertificate{
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		User:         user.Info(),
	}, nil
}
