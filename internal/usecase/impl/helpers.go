// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
)

// requestLogger returns a request-scoped logger if available, otherwise falls back to the given logger.
func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, fallback)
}

func toTokenUserData(session *entity.LoginSession) *entity.TokenUserData {
	return &entity.TokenUserData{
		LoginID:      session.ID,
		UserID:       session.UserID,
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
	}
}
