package impl

import (
	"context"
	"log/slog"
	"strings"

	"authgate/config"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// AccountBackendID is the routing id of the native account/password backend.
const AccountBackendID = "account"

// accountBackend authenticates local accounts by password and, optionally, a one-time code.
type accountBackend struct {
	sessionBackend

	hasher          service.PasswordHasher
	codes           service.CodeVerifier
	defaultPassword string
}

// AccountBackendParams holds dependencies for AccountBackend, injected by Fx.
type AccountBackendParams struct {
	fx.In

	UserRepo  repository.UserRepository
	Ledger    usecase.TokenLedger
	Refresher usecase.RefreshCoordinator
	Hasher    service.PasswordHasher
	Codes     service.CodeVerifier
	Config    *config.Config
	Logger    *slog.Logger
}

// NewAccountBackend is the constructor for accountBackend.
func NewAccountBackend(params AccountBackendParams) service.AuthBackend {
	return &accountBackend{
		sessionBackend: sessionBackend{
			userRepo:  params.UserRepo,
			ledger:    params.Ledger,
			refresher: params.Refresher,
			logger:    params.Logger,
		},
		hasher:          params.Hasher,
		codes:           params.Codes,
		defaultPassword: params.Config.Auth.DefaultPassword,
	}
}

func (b *accountBackend) ID() string {
	return AccountBackendID
}

// Authenticate checks the account and password. A one-time code, when supplied, is an
// additional factor and never stands in for the password.
func (b *accountBackend) Authenticate(ctx context.Context, creds *service.Credentials) (*entity.UserCertificate, error) {
	log := requestLogger(ctx, b.logger)

	if creds.Account == "" {
		return nil, domainerrors.ErrAccountBlank
	}
	if creds.Password == "" {
		return nil, domainerrors.ErrPasswordBlank
	}

	if creds.ValidID != "" || creds.ValidCode != "" {
		ok, err := b.codes.Verify(ctx, creds.ValidID, creds.ValidCode)
		if err != nil {
			return nil, errors.Wrap(err, "failed to verify code")
		}
		if !ok {
			log.Warn("One-time code mismatch", slog.String("validID", creds.ValidID))

			return nil, domainerrors.ErrValidCode
		}
	}

	user, err := b.userRepo.FindByAccount(ctx, creds.Account)
	if errors.Is(err, repository.ErrUserNotFound) {
		log.Warn("Account not found", slog.String("account", creds.Account))

		return nil, domainerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.Status != entity.StatusEnabled {
		log.Warn("Account disabled", slog.Any("userID", user.ID))

		return nil, domainerrors.ErrAccountDisabled
	}

	if !b.hasher.Check(creds.Password, user.PasswordHash) {
		log.Warn("Password mismatch", slog.Any("userID", user.ID))

		return nil, domainerrors.ErrPasswordWrong
	}

	return b.issue(ctx, user, creds.IPAddr, creds.Mac)
}

func (b *accountBackend) ModifyPassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (bool, error) {
	user, err := b.findUser(ctx, userID)
	if err != nil {
		return false, err
	}

	if !b.hasher.Check(oldPassword, user.PasswordHash) {
		return false, domainerrors.ErrPasswordWrong
	}

	return b.setPassword(ctx, user.ID, newPassword)
}

func (b *accountBackend) ForceModifyPassword(ctx context.Context, userID uuid.UUID, newPassword string) (bool, error) {
	if _, err := b.findUser(ctx, userID); err != nil {
		return false, err
	}

	return b.setPassword(ctx, userID, newPassword)
}

// ResetPassword sets the configured default password.
func (b *accountBackend) ResetPassword(ctx context.Context, userID uuid.UUID) (bool, error) {
	if _, err := b.findUser(ctx, userID); err != nil {
		return false, err
	}

	return b.setPassword(ctx, userID, b.defaultPassword)
}

// Register creates an Enabled account. An existing account is returned as is.
func (b *accountBackend) Register(ctx context.Context, reg *service.Registration) (*entity.UserAccount, error) {
	if reg.Account == "" {
		return nil, domainerrors.ErrAccountBlank
	}
	if strings.Contains(reg.Account, entity.ExternalAccountSeparator) {
		return nil, domainerrors.ErrValidationFailed.WithDetails("account contains a reserved character")
	}

	existing, err := b.userRepo.FindByAccount(ctx, reg.Account)
	if err == nil {
		requestLogger(ctx, b.logger).Info("Account already registered", slog.String("account", reg.Account))

		return &entity.UserAccount{UserID: existing.ID, Account: existing.Account}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user := &entity.User{
		ID:      uuid.New(),
		Account: reg.Account,
		Name:    reg.Account,
		Mobile:  reg.Mobile,
		Status:  entity.StatusEnabled,
	}
	if reg.Password != "" {
		hash, err := b.hasher.Hash(reg.Password)
		if err != nil {
			return nil, domainerrors.ErrPasswordHash.WithDetails(err.Error())
		}
		user.PasswordHash = hash
	}

	if err := b.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	requestLogger(ctx, b.logger).Info("Account registered", slog.Any("userID", user.ID))

	return &entity.UserAccount{UserID: user.ID, Account: user.Account}, nil
}

func (b *accountBackend) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := b.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrAccountNotFound
	}

	return user, err
}

func (b *accountBackend) setPassword(ctx context.Context, userID uuid.UUID, password string) (bool, error) {
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return false, domainerrors.ErrPasswordHash.WithDetails(err.Error())
	}

	if err := b.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return false, err
	}

	return true, nil
}
