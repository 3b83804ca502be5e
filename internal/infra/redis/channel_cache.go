package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"authgate/config"
	"authgate/internal/domain/entity"
	"authgate/internal/domain/service"
	"authgate/internal/errors"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ChannelCacheParams defines the dependencies of the channel cache
type ChannelCacheParams struct {
	fx.In

	Client goredis.UniversalClient
	Config *config.Config
}

type channelCache struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// channelRecord is the cached JSON form of entity.Channel.
type channelRecord struct {
	Code       int               `json:"code"`
	Name       string            `json:"name"`
	Abbr       string            `json:"abbr"`
	VerifyType entity.VerifyType `json:"verifyType"`
	Status     entity.Status     `json:"status"`
	Secret     string            `json:"secret,omitempty"`
}

// NewChannelCache creates a service.ChannelCache storing channels as JSON strings with a TTL.
func NewChannelCache(params ChannelCacheParams) service.ChannelCache {
	return newChannelCache(params.Client, params.Config.Redis.Prefix, params.Config.Channels.CacheTTL)
}

func newChannelCache(client goredis.UniversalClient, prefix string, ttl time.Duration) *channelCache {
	return &channelCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *channelCache) key(code int) string {
	return c.prefix + "channel:" + strconv.Itoa(code)
}

func (c *channelCache) Get(ctx context.Context, code int) (*entity.Channel, error) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get cached channel %d", code)
	}

	var record channelRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "decode cached channel %d", code)
	}

	return &entity.Channel{
		Code:       record.Code,
		Name:       record.Name,
		Abbr:       record.Abbr,
		VerifyType: record.VerifyType,
		Status:     record.Status,
		Secret:     record.Secret,
	}, nil
}

func (c *channelCache) Set(ctx context.Context, channel *entity.Channel) error {
	data, err := json.Marshal(channelRecord{
		Code:       channel.Code,
		Name:       channel.Name,
		Abbr:       channel.Abbr,
		VerifyType: channel.VerifyType,
		Status:     channel.Status,
		Secret:     channel.Secret,
	})
	if err != nil {
		return errors.Wrap(err, "encode channel")
	}

	return errors.Wrapf(c.client.Set(ctx, c.key(channel.Code), data, c.ttl).Err(), "cache channel %d", channel.Code)
}

func (c *channelCache) Invalidate(ctx context.Context, code int) error {
	return errors.Wrapf(c.client.Del(ctx, c.key(code)).Err(), "invalidate channel %d", code)
}
