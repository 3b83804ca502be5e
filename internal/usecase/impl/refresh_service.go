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

	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"
)

const refreshLockPrefix = "refresh:"

// refreshService implements the RefreshCoordinator interface.
// Concurrent refreshes of one token collapse in-process through singleflight and
// across processes through the distributed lock.
type refreshService struct {
	ledger usecase.TokenLedger
	locker service.Locker
	tokens service.TokenGenerator
	wait   time.Duration
	group  singleflight.Group
	now    func() time.Time
	logger *slog.Logger
}

// RefreshServiceParams holds dependencies for RefreshService, injected by Fx.
type RefreshServiceParams struct {
	fx.In

	Ledger usecase.TokenLedger
	Locker service.Locker
	Tokens service.TokenGenerator
	Config *config.Config
	Logger *slog.Logger
}

// NewRefreshService is the constructor for refreshService.
func NewRefreshService(params RefreshServiceParams) usecase.RefreshCoordinator {
	return &refreshService{
		ledger: params.Ledger,
		locker: params.Locker,
		tokens: params.Tokens,
		wait:   params.Config.Lock.RefreshWait,
		now:    time.Now,
		logger: params.Logger,
	}
}

// Refresh returns the session's current token pair, rotating the access token first if it has expired.
func (srv *refreshService) Refresh(ctx context.Context, refreshToken string) (*entity.TokenUserData, error) {
	if refreshToken == "" {
		return nil, domainerrors.ErrRefreshTokenInvalid
	}

	// The shared call must outlive whichever caller happened to start it.
	ch := srv.group.DoChan(refreshToken, func() (any, error) {
		return srv.rotate(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data := *res.Val.(*entity.TokenUserData)

		return &data, nil
	}
}

func (srv *refreshService) rotate(ctx context.Context, refreshToken string) (*entity.TokenUserData, error) {
	var result *entity.TokenUserData

	err := srv.locker.WithLock(ctx, refreshLockPrefix+refreshToken, srv.wait, func(ctx context.Context) error {
		session, err := srv.load(ctx, refreshToken)
		if err != nil {
			return err
		}

		if session.Status == entity.StatusDisabled || session.ExpiredAt(srv.now(), srv.ledger.TTL()) {
			if err := srv.renew(ctx, session); err != nil {
				return err
			}
		}

		result = toTokenUserData(session)

		return nil
	})
	if errors.Is(err, domainerrors.ErrLockUnavailable) {
		return srv.rotatedElsewhere(ctx, refreshToken, err)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

// rotatedElsewhere returns the session when the lock holder has already left it Enabled and fresh.
// Otherwise lockErr is returned unchanged.
func (srv *refreshService) rotatedElsewhere(ctx context.Context, refreshToken string, lockErr error) (*entity.TokenUserData, error) {
	session, err := srv.load(ctx, refreshToken)
	if err != nil || session.Status != entity.StatusEnabled || session.ExpiredAt(srv.now(), srv.ledger.TTL()) {
		requestLogger(ctx, srv.logger).Warn("Refresh lock busy", slog.Any("error", lockErr))

		return nil, lockErr
	}

	return toTokenUserData(session), nil
}

func (srv *refreshService) load(ctx context.Context, refreshToken string) (*entity.LoginSession, error) {
	session, err := srv.ledger.LoadByRefreshToken(ctx, refreshToken)
	if errors.Is(err, repository.ErrLoginSessionNotFound) {
		return nil, domainerrors.ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session by refresh token")
	}
	if session.Status == entity.StatusDeleted {
		return nil, domainerrors.ErrRefreshTokenInvalid
	}

	return session, nil
}

// renew installs a new access token on session and re-enables it.
func (srv *refreshService) renew(ctx context.Context, session *entity.LoginSession) error {
	token := srv.tokens.NewToken()

	ok, err := srv.ledger.UpdateToken(ctx, session.ID, token)
	if err != nil {
		return errors.Wrap(err, "failed to update token")
	}
	if !ok {
		// Logged out between the load and the write.
		return domainerrors.ErrRefreshTokenInvalid
	}
	session.Token = token

	if session.Status != entity.StatusEnabled {
		if _, err := srv.ledger.UpdateStatus(ctx, session.ID, entity.StatusEnabled); err != nil {
			return errors.Wrap(err, "failed to re-enable session")
		}
		session.Status = entity.StatusEnabled
	}

	requestLogger(ctx, srv.logger).Info("Access token rotated", slog.Any("loginID", session.ID), slog.Any("userID", session.UserID))

	return nil
}
