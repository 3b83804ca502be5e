package middleware

import (
	"io"
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/delivery/http/response"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/protocol"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Verifier usecase.RequestVerifier
	Logger   *slog.Logger
}

// AuthMiddleware decodes the request envelope and verifies it before any handler runs.
type AuthMiddleware struct {
	verifier usecase.RequestVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: params.Verifier,
		logger:   params.Logger,
	}
}

// Authenticate requires a verified envelope carrying a live login token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return m.verify(next, usecase.VerifyOptions{})
}

// Public verifies the envelope but does not require a token, for login-type requests.
func (m *AuthMiddleware) Public(next echo.HandlerFunc) echo.HandlerFunc {
	return m.verify(next, usecase.VerifyOptions{SkipToken: true})
}

func (m *AuthMiddleware) verify(next echo.HandlerFunc, opts usecase.VerifyOptions) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger)

		raw, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return errors.Wrap(err, "read request body")
		}

		req, err := protocol.Decode(raw)
		if err != nil {
			logger.Debug("Malformed envelope", slog.Any("error", err))

			return response.Error(c, domainerrors.ErrProtocolVerify)
		}

		identity, err := m.verifier.Verify(ctx, req, opts)
		if err != nil {
			if appErr, ok := domainerrors.AsAppError(err); ok {
				logger.Debug("Envelope rejected",
					slog.Int("code", appErr.RespCode()),
					slog.String("reason", appErr.Error()),
				)

				return response.Error(c, appErr)
			}

			return errors.WithStack(err)
		}

		reqLogger := logger.With(slog.Int("channel", identity.Channel))
		if identity.HasSession() {
			reqLogger = reqLogger.With(slog.String("user_id", identity.UserID.String()))
		}

		deliverycontext.SetEnvelope(c, req)
		deliverycontext.SetIdentity(c, identity)
		ctx = deliverycontext.WithIdentity(ctx, identity)
		ctx = deliverycontext.WithLogger(ctx, reqLogger)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
