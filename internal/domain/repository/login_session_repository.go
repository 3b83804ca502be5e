package repository

import (
	"context"
	"errors"
	"time"

	"authgate/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrLoginSessionNotFound is returned when no session matches the lookup.
var ErrLoginSessionNotFound = errors.New("login session not found")

// LoginSessionRepository persists login sessions.
//
// No method moves a session out of StatusDeleted; writes against a deleted row report ok=false.
type LoginSessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *entity.LoginSession) error

	// FindByID retrieves a session by its login id.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.LoginSession, error)

	// FindByToken retrieves a session by its current access token.
	FindByToken(ctx context.Context, token string) (*entity.LoginSession, error)

	// FindByRefreshToken retrieves a session by its refresh token.
	FindByRefreshToken(ctx context.Context, refreshToken string) (*entity.LoginSession, error)

	// FindLatestByUserID returns the most recently updated non-deleted session of a user.
	FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*entity.LoginSession, error)

	// UpdateStatus sets the status of a non-deleted session.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.Status) (bool, error)

	// CompareAndSetStatus sets next only while the stored status still equals expected.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next entity.Status) (bool, error)

	// UpdateToken replaces the access token of a non-deleted session and stamps lastUpdatedAt.
	UpdateToken(ctx context.Context, id uuid.UUID, token string, updatedAt time.Time) (bool, error)

	// DeleteByUserID soft-deletes every non-deleted session of a user and returns how many changed.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
