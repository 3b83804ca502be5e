package repository

import (
	"context"
	"errors"

	"authgate/internal/domain/entity"
)

// ErrChannelNotFound is returned when no channel has the requested code.
var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository reads channel definitions and their backend routing.
type ChannelRepository interface {
	// FindByCode retrieves a channel by its numeric code.
	FindByCode(ctx context.Context, code int) (*entity.Channel, error)

	// FindBackendIDs returns the ids of the auth backends bound to a channel, highest priority first.
	// An empty result means the channel has no stored routing.
	FindBackendIDs(ctx context.Context, code int) ([]string, error)
}
