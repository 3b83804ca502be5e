package impl

import (
	"context"
	"log/slog"
	"strconv"

	"authgate/config"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"go.uber.org/fx"
)

// channelService implements the ChannelRegistry interface.
type channelService struct {
	channelRepo repository.ChannelRepository
	cache       service.ChannelCache
	backends    map[string]service.AuthBackend
	routes      map[string][]string
	secrets     map[string]string
	logger      *slog.Logger
}

// ChannelServiceParams holds dependencies for ChannelService, injected by Fx.
type ChannelServiceParams struct {
	fx.In

	ChannelRepo repository.ChannelRepository
	Cache       service.ChannelCache
	Backends    []service.AuthBackend `group:"auth_backends"`
	Config      *config.Config
	Logger      *slog.Logger
}

// NewChannelService is the constructor for channelService.
func NewChannelService(params ChannelServiceParams) usecase.ChannelRegistry {
	backends := make(map[string]service.AuthBackend, len(params.Backends))
	for _, backend := range params.Backends {
		backends[backend.ID()] = backend
	}

	var routes map[string][]string
	var secrets map[string]string
	if params.Config != nil && params.Config.Channels != nil {
		routes = params.Config.Channels.Backends
		secrets = params.Config.Channels.Secrets
	}

	return &channelService{
		channelRepo: params.ChannelRepo,
		cache:       params.Cache,
		backends:    backends,
		routes:      routes,
		secrets:     secrets,
		logger:      params.Logger,
	}
}

// LoadChannel resolves a channel through the cache, falling back to the store.
func (srv *channelService) LoadChannel(ctx context.Context, code int) (*entity.Channel, error) {
	if code < 0 {
		return nil, domainerrors.ErrChannelEmpty
	}

	channel, err := srv.cache.Get(ctx, code)
	if err != nil {
		requestLogger(ctx, srv.logger).Warn("Channel cache read failed", slog.Int("channel", code), slog.Any("error", err))
	}

	if channel == nil {
		channel, err = srv.channelRepo.FindByCode(ctx, code)
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, domainerrors.ErrChannelNotFound
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to load channel")
		}

		if err := srv.cache.Set(ctx, channel); err != nil {
			requestLogger(ctx, srv.logger).Warn("Channel cache write failed", slog.Int("channel", code), slog.Any("error", err))
		}
	}

	if channel.Secret == "" {
		channel.Secret = srv.secrets[strconv.Itoa(code)]
	}

	return channel, nil
}

// LoadBackends returns the channel's backends in priority order.
// Routing stored with the channel wins over the static configuration.
func (srv *channelService) LoadBackends(ctx context.Context, code int) ([]service.AuthBackend, error) {
	ids, err := srv.channelRepo.FindBackendIDs(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load channel backends")
	}
	if len(ids) == 0 {
		ids = srv.routes[strconv.Itoa(code)]
	}

	backends := make([]service.AuthBackend, 0, len(ids))
	for _, id := range ids {
		backend, ok := srv.backends[id]
		if !ok {
			requestLogger(ctx, srv.logger).Warn("Unknown auth backend in channel routing", slog.Int("channel", code), slog.String("backend", id))

			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, domainerrors.ErrNoBackends.WithDetails("channel " + strconv.Itoa(code))
	}

	return backends, nil
}
