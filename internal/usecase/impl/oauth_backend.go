package impl

import (
	"context"
	"log/slog"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// oauthBackend signs users in with a third-party ID token and maps them to local users by
// provider and subject. It has no passwords, so password operations fall through.
type oauthBackend struct {
	sessionBackend

	verifier service.IDTokenVerifier
}

// OAuthBackendParams holds dependencies for OAuthBackend, injected by Fx.
type OAuthBackendParams struct {
	fx.In

	UserRepo  repository.UserRepository
	Ledger    usecase.TokenLedger
	Refresher usecase.RefreshCoordinator
	Verifier  service.IDTokenVerifier
	Logger    *slog.Logger
}

// NewOAuthBackend is the constructor for oauthBackend.
func NewOAuthBackend(params OAuthBackendParams) service.AuthBackend {
	return &oauthBackend{
		sessionBackend: sessionBackend{
			userRepo:  params.UserRepo,
			ledger:    params.Ledger,
			refresher: params.Refresher,
			logger:    params.Logger,
		},
		verifier: params.Verifier,
	}
}

// ID is the provider name, e.g. "google".
func (b *oauthBackend) ID() string {
	return b.verifier.Provider()
}

func (b *oauthBackend) Authenticate(ctx context.Context, creds *service.Credentials) (*entity.UserCertificate, error) {
	if creds.IDToken == "" {
		return nil, domainerrors.ErrBackendNotApplicable
	}

	oauthUser, err := b.verifier.VerifyIDToken(ctx, creds.IDToken)
	if err != nil {
		requestLogger(ctx, b.logger).Warn("ID token rejected", slog.String("provider", b.ID()), slog.Any("error", err))

		return nil, domainerrors.ErrAuthFailure.WithDetails("invalid id token")
	}

	user, err := b.findOrRegister(ctx, oauthUser)
	if err != nil {
		return nil, err
	}

	if user.Status != entity.StatusEnabled {
		return nil, domainerrors.ErrAccountDisabled
	}

	return b.issue(ctx, user, creds.IPAddr, creds.Mac)
}

func (b *oauthBackend) findOrRegister(ctx context.Context, oauthUser *service.OAuthUser) (*entity.User, error) {
	provider := b.ID()
	account := provider + entity.ExternalAccountSeparator + oauthUser.ID

	user, err := b.userRepo.FindByExternalID(ctx, provider, oauthUser.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user = &entity.User{
		ID:       uuid.New(),
		Account:  account,
		Name:     oauthUser.Name,
		Avatar:   oauthUser.AvatarURL,
		Status:   entity.StatusEnabled,
		External: &entity.ExternalIdentity{Provider: provider, Subject: oauthUser.ID},
	}
	if oauthUser.EmailVerified {
		user.Email = oauthUser.Email
	}
	if user.Name == "" {
		user.Name = account
	}

	if err := b.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	requestLogger(ctx, b.logger).Info("Account registered from id token", slog.String("provider", b.ID()), slog.Any("userID", user.ID))

	return user, nil
}

func (b *oauthBackend) ModifyPassword(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, domainerrors.ErrBackendNotApplicable
}

func (b *oauthBackend) ForceModifyPassword(context.Context, uuid.UUID, string) (bool, error) {
	return false, domainerrors.ErrBackendNotApplicable
}

func (b *oauthBackend) ResetPassword(context.Context, uuid.UUID) (bool, error) {
	return false, domainerrors.ErrBackendNotApplicable
}

func (b *oauthBackend) Register(context.Context, *service.Registration) (*entity.UserAccount, error) {
	return nil, domainerrors.ErrBackendNotApplicable
}
