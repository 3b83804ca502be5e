package usecase

import (
	"context"

	"authgate/internal/domain/entity"
	"authgate/internal/domain/service"
)

// ChannelRegistry resolves channel codes to their definition and their ordered auth backends.
type ChannelRegistry interface {
	// LoadChannel returns ErrChannelEmpty for a negative code and ErrChannelNotFound for an unknown one.
	LoadChannel(ctx context.Context, code int) (*entity.Channel, error)

	// LoadBackends returns the backends bound to a channel in priority order, or ErrNoBackends.
	LoadBackends(ctx context.Context, code int) ([]service.AuthBackend, error)
}
