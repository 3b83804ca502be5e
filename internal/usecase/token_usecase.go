package usecase

import (
	"context"
	"time"

	"authgate/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenLedger owns the lifecycle of login sessions and the token rules applied to them.
type TokenLedger interface {
	// Create issues a new session for an existing user.
	Create(ctx context.Context, userID uuid.UUID, ipAddr, mac string) (*entity.LoginSession, error)

	LoadByToken(ctx context.Context, token string) (*entity.LoginSession, error)
	LoadByRefreshToken(ctx context.Context, refreshToken string) (*entity.LoginSession, error)
	LoadByID(ctx context.Context, id uuid.UUID) (*entity.LoginSession, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.Status) (bool, error)

	// UpdateToken installs a new access token and restarts the session TTL.
	UpdateToken(ctx context.Context, id uuid.UUID, token string) (bool, error)

	Invalidate(ctx context.Context, id uuid.UUID) (bool, error)
	InvalidateAllForUser(ctx context.Context, userID uuid.UUID) (bool, error)

	// LatestRefreshTokenForUser returns "" when the user has no live session.
	LatestRefreshTokenForUser(ctx context.Context, userID uuid.UUID) (string, error)

	// EvaluateExpiry reports whether an Enabled session has outlived the TTL and, if so,
	// returns a copy marked Disabled. It has no side effects.
	EvaluateExpiry(session *entity.LoginSession, now time.Time) (bool, *entity.LoginSession)

	// Persist writes the status of updated only if the stored row still has expected.
	Persist(ctx context.Context, expected entity.Status, updated *entity.LoginSession) (bool, error)

	// ResolveToken applies the access token rules: unknown or deleted is ErrTokenInvalid,
	// disabled or past the TTL is ErrTokenExpired.
	ResolveToken(ctx context.Context, token string) (*entity.LoginSession, error)

	// TTL is the lifetime of an access token.
	TTL() time.Duration
}

// RefreshCoordinator rotates access tokens from refresh tokens, at most once per expiry
// no matter how many callers race.
type RefreshCoordinator interface {
	Refresh(ctx context.Context, refreshToken string) (*entity.TokenUserData, error)
}
