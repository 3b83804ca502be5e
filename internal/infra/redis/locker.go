package redis

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"authgate/config"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"
	"authgate/internal/errors"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const (
	retryInterval = 10 * time.Millisecond
	retryJitter   = 50 * time.Microsecond
)

// Deletes the key only while it still holds the caller's token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLua = goredis.NewScript(releaseScript)

// LockerParams defines the dependencies of the Redis locker
type LockerParams struct {
	fx.In

	Client goredis.UniversalClient
	Config *config.Config
	Logger *slog.Logger
}

type locker struct {
	client goredis.UniversalClient
	prefix string
	lease  time.Duration
	wait   time.Duration
	logger *slog.Logger
}

// NewLocker creates a service.Locker backed by SET NX leases.
func NewLocker(params LockerParams) service.Locker {
	return newLocker(
		params.Client,
		params.Config.Redis.Prefix+params.Config.Lock.Prefix,
		params.Config.Lock.Lease,
		params.Config.Lock.Wait,
		params.Logger,
	)
}

func newLocker(client goredis.UniversalClient, prefix string, lease, wait time.Duration, logger *slog.Logger) *locker {
	return &locker{
		client: client,
		prefix: prefix,
		lease:  lease,
		wait:   wait,
		logger: logger,
	}
}

func (l *locker) Acquire(ctx context.Context, key string, lease time.Duration) (*service.Lease, bool, error) {
	held := &service.Lease{
		Key:   l.prefix + key,
		Token: uuid.NewString(),
	}

	ok, err := l.client.SetNX(ctx, held.Key, held.Token, lease).Result()
	if err != nil {
		return nil, false, errors.Wrapf(errors.Join(domainerrors.ErrLockUnavailable, err), "acquire %s", held.Key)
	}
	if !ok {
		return nil, false, nil
	}

	return held, true, nil
}

func (l *locker) TryAcquire(ctx context.Context, key string, lease, wait time.Duration) (*service.Lease, bool, error) {
	deadline := time.Now().Add(wait)

	for {
		held, ok, err := l.Acquire(ctx, key, lease)
		if err != nil || ok {
			return held, ok, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, nil
		}

		timer := time.NewTimer(min(retryInterval+rand.N(retryJitter), remaining))
		select {
		case <-ctx.Done():
			timer.Stop()

			return nil, false, errors.Wrap(ctx.Err(), "wait for lock")
		case <-timer.C:
		}
	}
}

func (l *locker) Release(ctx context.Context, held *service.Lease) (bool, error) {
	if held == nil {
		return false, nil
	}

	deleted, err := releaseLua.Run(ctx, l.client, []string{held.Key}, held.Token).Int64()
	if err != nil {
		return false, errors.Wrapf(errors.Join(domainerrors.ErrLockUnavailable, err), "release %s", held.Key)
	}

	return deleted == 1, nil
}

func (l *locker) WithLock(ctx context.Context, key string, wait time.Duration, fn func(ctx context.Context) error) error {
	if wait <= 0 {
		wait = l.wait
	}

	held, ok, err := l.TryAcquire(ctx, key, l.lease, wait)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(domainerrors.ErrLockUnavailable, "lock %s busy", key)
	}

	defer func() {
		released, err := l.Release(context.WithoutCancel(ctx), held)
		if err != nil {
			l.logger.WarnContext(ctx, "Failed to release lock", slog.String("key", held.Key), slog.Any("error", err))
		} else if !released {
			l.logger.WarnContext(ctx, "Lock lease expired before release", slog.String("key", held.Key))
		}
	}()

	return fn(ctx)
}
