package service

import (
	"context"

	"authgate/internal/domain/entity"
)

// ChannelCache is a read-through cache in front of the channel store.
type ChannelCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, code int) (*entity.Channel, error)
	Set(ctx context.Context, channel *entity.Channel) error
	Invalidate(ctx context.Context, code int) error
}
