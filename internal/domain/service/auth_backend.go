package service

import (
	"context"

	"authgate/internal/domain/entity"

	"github.com/google/uuid"
)

// Credentials carries everything a backend may need to authenticate one login attempt.
// Backends ignore the fields they do not understand.
type Credentials struct {
	Account   string
	Password  string
	Mac       string
	IPAddr    string
	ValidID   string // Id of an out-of-band one-time code, optional.
	ValidCode string
	IDToken   string // Third-party identity token, optional.
}

// Registration is the input of AuthBackend.Register.
type Registration struct {
	Account  string
	Password string
	Mobile   string
}

// AuthBackend is one pluggable authentication strategy. A channel routes to an ordered list of them.
//
// A backend that cannot serve a call returns ErrBackendNotApplicable (or any non-terminal error) so the
// next backend is tried. Terminal errors stop the chain.
type AuthBackend interface {
	// ID is the stable identifier used in channel routing configuration.
	ID() string

	Authenticate(ctx context.Context, creds *Credentials) (*entity.UserCertificate, error)
	Logout(ctx context.Context, userID uuid.UUID) (bool, error)
	ModifyPassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (bool, error)
	ForceModifyPassword(ctx context.Context, userID uuid.UUID, newPassword string) (bool, error)
	ResetPassword(ctx context.Context, userID uuid.UUID) (bool, error)
	Register(ctx context.Context, reg *Registration) (*entity.UserAccount, error)
	LoadUserByID(ctx context.Context, userID uuid.UUID) (*entity.UserInfo, error)
	LoadUserByToken(ctx context.Context, token string) (*entity.TokenUserData, error)
	LoadUserByRefreshToken(ctx context.Context, refreshToken string) (*entity.TokenUserData, error)
	LoadLastRefreshTokenByUser(ctx context.Context, userID uuid.UUID) (string, error)
}
