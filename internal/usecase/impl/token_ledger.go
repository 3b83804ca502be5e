package impl

import (
	"context"
	"log/slog"
	"time"

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

// tokenLedger implements the TokenLedger interface.
type tokenLedger struct {
	txManager   repository.TransactionManager
	sessionRepo repository.LoginSessionRepository
	tokens      service.TokenGenerator
	ttl         time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// TokenLedgerParams holds dependencies for TokenLedger, injected by Fx.
type TokenLedgerParams struct {
	fx.In

	TxManager   repository.TransactionManager
	SessionRepo repository.LoginSessionRepository
	Tokens      service.TokenGenerator
	Config      *config.Config
	Logger      *slog.Logger
}

// NewTokenLedger is the constructor for tokenLedger.
func NewTokenLedger(params TokenLedgerParams) usecase.TokenLedger {
	return &tokenLedger{
		txManager:   params.TxManager,
		sessionRepo: params.SessionRepo,
		tokens:      params.Tokens,
		ttl:         params.Config.Token.TTL,
		now:         time.Now,
		logger:      params.Logger,
	}
}

func (l *tokenLedger) TTL() time.Duration {
	return l.ttl
}

// Create issues a new Enabled session after checking that the user exists.
func (l *tokenLedger) Create(ctx context.Context, userID uuid.UUID, ipAddr, mac string) (*entity.LoginSession, error) {
	now := l.now()
	token := l.tokens.NewToken()
	session := &entity.LoginSession{
		ID:            uuid.New(),
		UserID:        userID,
		IPAddr:        ipAddr,
		Mac:           mac,
		Token:         token,
		Status:        entity.StatusEnabled,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	session.RefreshToken = l.tokens.RefreshToken(session.ID, token)

	err := l.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := repoFactory.NewUserRepository().FindByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return domainerrors.ErrAccountNotFound
			}

			return errors.Wrap(err, "failed to find user")
		}

		return repoFactory.NewLoginSessionRepository().Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	requestLogger(ctx, l.logger).Debug("Login session created", slog.Any("userID", userID), slog.Any("loginID", session.ID))

	return session, nil
}

func (l *tokenLedger) LoadByToken(ctx context.Context, token string) (*entity.LoginSession, error) {
	return l.sessionRepo.FindByToken(ctx, token)
}

func (l *tokenLedger) LoadByRefreshToken(ctx context.Context, refreshToken string) (*entity.LoginSession, error) {
	return l.sessionRepo.FindByRefreshToken(ctx, refreshToken)
}

func (l *tokenLedger) LoadByID(ctx context.Context, id uuid.UUID) (*entity.LoginSession, error) {
	return l.sessionRepo.FindByID(ctx, id)
}

func (l *tokenLedger) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.Status) (bool, error) {
	return l.sessionRepo.UpdateStatus(ctx, id, status)
}

func (l *tokenLedger) UpdateToken(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	return l.sessionRepo.UpdateToken(ctx, id, token, l.now())
}

func (l *tokenLedger) Invalidate(ctx context.Context, id uuid.UUID) (bool, error) {
	return l.sessionRepo.UpdateStatus(ctx, id, entity.StatusDeleted)
}

// InvalidateAllForUser reports true even when the user had no live session, so logging out twice succeeds.
func (l *tokenLedger) InvalidateAllForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := l.sessionRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return false, err
	}

	requestLogger(ctx, l.logger).Debug("Login sessions invalidated", slog.Any("userID", userID), slog.Int64("count", count))

	return true, nil
}

func (l *tokenLedger) LatestRefreshTokenForUser(ctx context.Context, userID uuid.UUID) (string, error) {
	session, err := l.sessionRepo.FindLatestByUserID(ctx, userID)
	if errors.Is(err, repository.ErrLoginSessionNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return session.RefreshToken, nil
}

func (l *tokenLedger) EvaluateExpiry(session *entity.LoginSession, now time.Time) (bool, *entity.LoginSession) {
	if session.Status != entity.StatusEnabled || !session.ExpiredAt(now, l.ttl) {
		return false, session
	}

	updated := *session
	updated.Status = entity.StatusDisabled

	return true, &updated
}

func (l *tokenLedger) Persist(ctx context.Context, expected entity.Status, updated *entity.LoginSession) (bool, error) {
	return l.sessionRepo.CompareAndSetStatus(ctx, updated.ID, expected, updated.Status)
}

func (l *tokenLedger) ResolveToken(ctx context.Context, token string) (*entity.LoginSession, error) {
	if token == "" {
		return nil, domainerrors.ErrTokenInvalid
	}

	session, err := l.sessionRepo.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrLoginSessionNotFound) {
		return nil, domainerrors.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case entity.StatusDeleted:
		return nil, domainerrors.ErrTokenInvalid
	case entity.StatusDisabled:
		return nil, domainerrors.ErrTokenExpired
	}

	if expired, updated := l.EvaluateExpiry(session, l.now()); expired {
		// The caller gets TokenExpired even if the write loses a race or fails; the next check retries it.
		if _, err := l.Persist(ctx, session.Status, updated); err != nil {
			requestLogger(ctx, l.logger).Warn("Failed to mark login session expired", slog.Any("loginID", session.ID), slog.Any("error", err))
		}

		return nil, domainerrors.ErrTokenExpired
	}

	return session, nil
}
