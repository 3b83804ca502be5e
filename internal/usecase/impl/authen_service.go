package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// authenService implements the AuthenUsecase interface by trying a channel's backends in order.
type authenService struct {
	channels  usecase.ChannelRegistry
	publisher service.EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// AuthenServiceParams holds dependencies for AuthenService, injected by Fx.
type AuthenServiceParams struct {
	fx.In

	Channels  usecase.ChannelRegistry
	Publisher service.EventPublisher
	Logger    *slog.Logger
}

// NewAuthenService is the constructor for authenService.
func NewAuthenService(params AuthenServiceParams) usecase.AuthenUsecase {
	return &authenService{
		channels:  params.Channels,
		publisher: params.Publisher,
		now:       time.Now,
		logger:    params.Logger,
	}
}

func (srv *authenService) log(ctx context.Context) *slog.Logger {
	return requestLogger(ctx, srv.logger)
}

// dispatch calls op on each backend of channel until one returns a result accepted by found.
//
// Terminal errors and context cancellation end the loop at once. Other errors are logged and the
// next backend is tried; if none succeeds the last error is returned, with errors outside the
// domain table reported as ErrAuthFailure.
func dispatch[T any](
	ctx context.Context,
	srv *authenService,
	channel int,
	op string,
	found func(T) bool,
	call func(ctx context.Context, backend service.AuthBackend) (T, error),
) (T, string, error) {
	var zero T

	backends, err := srv.channels.LoadBackends(ctx, channel)
	if err != nil {
		return zero, "", err
	}

	var lastErr error
	for _, backend := range backends {
		if err := ctx.Err(); err != nil {
			return zero, "", errors.WithStack(err)
		}

		result, err := call(ctx, backend)
		if err == nil {
			if found(result) {
				srv.log(ctx).Debug("Backend handled request", slog.String("op", op), slog.Int("channel", channel), slog.String("backend", backend.ID()))

				return result, backend.ID(), nil
			}

			continue
		}

		if domainerrors.IsTerminal(err) {
			return zero, "", err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, "", err
		}

		if !errors.Is(err, domainerrors.ErrBackendNotApplicable) {
			srv.log(ctx).Warn("Backend failed, trying next",
				slog.String("op", op),
				slog.Int("channel", channel),
				slog.String("backend", backend.ID()),
				slog.Any("error", err),
			)
		}
		lastErr = err
	}

	if lastErr == nil {
		return zero, "", domainerrors.ErrAuthFailure.WithDetails(op + ": no backend produced a result")
	}
	if _, ok := domainerrors.AsAppError(lastErr); ok {
		return zero, "", lastErr
	}

	return zero, "", errors.Join(domainerrors.ErrAuthFailure, lastErr)
}

func notNil[T any](v *T) bool {
	return v != nil
}

func always[T any](T) bool {
	return true
}

func (srv *authenService) Authenticate(ctx context.Context, input *usecase.LoginInput) (*entity.UserCertificate, error) {
	if input.Account == "" && input.IDToken == "" {
		return nil, domainerrors.ErrAccountBlank
	}

	creds := &service.Credentials{
		Account:   input.Account,
		Password:  input.Password,
		Mac:       input.Mac,
		IPAddr:    input.IPAddr,
		ValidID:   input.ValidID,
		ValidCode: input.ValidCode,
		IDToken:   input.IDToken,
	}

	cert, backendID, err := dispatch(ctx, srv, input.Channel, "authenticate", notNil[entity.UserCertificate],
		func(ctx context.Context, backend service.AuthBackend) (*entity.UserCertificate, error) {
			return backend.Authenticate(ctx, creds)
		})
	if err != nil {
		srv.log(ctx).Warn("Authentication failed", slog.Int("channel", input.Channel), slog.String("account", input.Account), slog.Any("error", err))

		return nil, err
	}

	if cert.User != nil {
		srv.publish(ctx, service.AuthEventLogin, input.Channel, cert.User.ID, backendID)
	}

	return cert, nil
}

func (srv *authenService) Logout(ctx context.Context, channel int, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, domainerrors.ErrFailure.WithDetails("user id is required")
	}

	ok, backendID, err := dispatch(ctx, srv, channel, "logout", always[bool],
		func(ctx context.Context, backend service.AuthBackend) (bool, error) {
			return backend.Logout(ctx, userID)
		})
	if err != nil {
		return false, err
	}

	if ok {
		srv.publish(ctx, service.AuthEventLogout, channel, userID, backendID)
	}

	return ok, nil
}

func (srv *authenService) ModifyPassword(ctx context.Context, input *usecase.ModifyPasswordInput) (bool, error) {
	if input.UserID == uuid.Nil {
		return false, domainerrors.ErrFailure.WithDetails("user id is required")
	}
	if input.OldPassword == "" || input.NewPassword == "" {
		return false, domainerrors.ErrPasswordBlank
	}

	ok, _, err := dispatch(ctx, srv, input.Channel, "modify_password", always[bool],
		func(ctx context.Context, backend service.AuthBackend) (bool, error) {
			return backend.ModifyPassword(ctx, input.UserID, input.OldPassword, input.NewPassword)
		})

	return ok, err
}

func (srv *authenService) ForceModifyPassword(ctx context.Context, channel int, userID uuid.UUID, newPassword string) (bool, error) {
	if userID == uuid.Nil {
		return false, domainerrors.ErrFailure.WithDetails("user id is required")
	}
	if newPassword == "" {
		return false, domainerrors.ErrPasswordBlank
	}

	ok, _, err := dispatch(ctx, srv, channel, "force_modify_password", always[bool],
		func(ctx context.Context, backend service.AuthBackend) (bool, error) {
			return backend.ForceModifyPassword(ctx, userID, newPassword)
		})

	return ok, err
}

func (srv *authenService) ResetPassword(ctx context.Context, channel int, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, domainerrors.ErrFailure.WithDetails("user id is required")
	}

	ok, _, err := dispatch(ctx, srv, channel, "reset_password", always[bool],
		func(ctx context.Context, backend service.AuthBackend) (bool, error) {
			return backend.ResetPassword(ctx, userID)
		})

	return ok, err
}

func (srv *authenService) Register(ctx context.Context, input *usecase.RegisterInput) (*entity.UserAccount, error) {
	if input.Account == "" {
		return nil, domainerrors.ErrAccountBlank
	}

	reg := &service.Registration{
		Account:  input.Account,
		Password: input.Password,
		Mobile:   input.Mobile,
	}

	account, _, err := dispatch(ctx, srv, input.Channel, "register", notNil[entity.UserAccount],
		func(ctx context.Context, backend service.AuthBackend) (*entity.UserAccount, error) {
			return backend.Register(ctx, reg)
		})

	return account, err
}

func (srv *authenService) LoadUserByID(ctx context.Context, channel int, userID uuid.UUID) (*entity.UserInfo, error) {
	info, _, err := dispatch(ctx, srv, channel, "load_user", notNil[entity.UserInfo],
		func(ctx context.Context, backend service.AuthBackend) (*entity.UserInfo, error) {
			return backend.LoadUserByID(ctx, userID)
		})

	return info, err
}

func (srv *authenService) LoadUserByToken(ctx context.Context, channel int, token string) (*entity.TokenUserData, error) {
	if token == "" {
		return nil, domainerrors.ErrTokenInvalid
	}

	data, _, err := dispatch(ctx, srv, channel, "load_user_by_token", notNil[entity.TokenUserData],
		func(ctx context.Context, backend service.AuthBackend) (*entity.TokenUserData, error) {
			return backend.LoadUserByToken(ctx, token)
		})

	return data, err
}

func (srv *authenService) LoadUserByRefreshToken(ctx context.Context, channel int, refreshToken string) (*entity.TokenUserData, error) {
	if refreshToken == "" {
		return nil, domainerrors.ErrRefreshTokenInvalid
	}

	data, _, err := dispatch(ctx, srv, channel, "load_user_by_refresh_token", notNil[entity.TokenUserData],
		func(ctx context.Context, backend service.AuthBackend) (*entity.TokenUserData, error) {
			return backend.LoadUserByRefreshToken(ctx, refreshToken)
		})

	return data, err
}

func (srv *authenService) LoadLastRefreshTokenByUser(ctx context.Context, channel int, userID uuid.UUID) (string, error) {
	token, _, err := dispatch(ctx, srv, channel, "load_last_refresh_token", always[string],
		func(ctx context.Context, backend service.AuthBackend) (string, error) {
			return backend.LoadLastRefreshTokenByUser(ctx, userID)
		})

	return token, err
}

// publish emits a login/logout event. Delivery failures never fail the operation.
func (srv *authenService) publish(ctx context.Context, eventType service.AuthEventType, channel int, userID uuid.UUID, backendID string) {
	event := &service.AuthEvent{
		ID:         uuid.New().String(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		Channel:    channel,
		UserID:     userID.String(),
		Backend:    backendID,
		OccurredAt: srv.now().UTC(),
	}

	if err := srv.publisher.PublishAuthEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish auth event",
			slog.String("type", string(eventType)),
			slog.Any("userID", userID),
			slog.Any("error", err),
		)
	}
}
