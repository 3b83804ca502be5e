package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"authgate/config"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	infraredis "authgate/internal/infra/redis"
	"authgate/internal/usecase"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refreshServiceFixtures struct {
	*tokenLedgerFixtures

	service *refreshService
	locker  *memLocker
}

func createTestRefreshService(t *testing.T) *refreshServiceFixtures {
	t.Helper()

	ledgerFx := createTestTokenLedger(t)
	locker := newMemLocker()

	srv := NewRefreshService(RefreshServiceParams{
		Ledger: ledgerFx.ledger,
		Locker: locker,
		Tokens: &seqTokens{prefix: "rotated"},
		Config: newTestConfig(),
		Logger: newDiscardLogger(),
	}).(*refreshService)
	srv.now = func() time.Time { return ledgerFx.now }

	return &refreshServiceFixtures{tokenLedgerFixtures: ledgerFx, service: srv, locker: locker}
}

func TestRefreshService_RejectsUnknownAndDeleted(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	_, err := fx.service.Refresh(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)

	_, err = fx.service.Refresh(ctx, "no-such-token")
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)
	_, err = fx.ledger.Invalidate(ctx, session.ID)
	require.NoError(t, err)

	_, err = fx.service.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
}

func TestRefreshService_FreshSessionIsReturnedUnchanged(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)

	data, err := fx.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.Token, data.Token)
	assert.Equal(t, session.RefreshToken, data.RefreshToken)
	assert.Equal(t, session.ID, data.LoginID)
	assert.Equal(t, fx.user.ID, data.UserID)
	assert.Zero(t, fx.sessions.updateTokenCalls.Load())
}

func TestRefreshService_RotatesExpiredSession(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)
	fx.now = fx.now.Add(3 * time.Hour)

	data, err := fx.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, data.Token)
	assert.Equal(t, session.RefreshToken, data.RefreshToken, "refresh token is stable")

	stored := fx.sessions.get(session.ID)
	assert.Equal(t, data.Token, stored.Token)
	assert.Equal(t, entity.StatusEnabled, stored.Status)
	assert.Equal(t, fx.now, stored.LastUpdatedAt)

	_, err = fx.ledger.ResolveToken(ctx, data.Token)
	assert.NoError(t, err)
}

func TestRefreshService_ReenablesDisabledSession(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)
	_, err = fx.ledger.UpdateStatus(ctx, session.ID, entity.StatusDisabled)
	require.NoError(t, err)

	data, err := fx.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, data.Token)
	assert.Equal(t, entity.StatusEnabled, fx.sessions.get(session.ID).Status)
}

func refreshConcurrently(t *testing.T, callers int, refresh func() (*entity.TokenUserData, error)) []*entity.TokenUserData {
	t.Helper()

	results := make([]*entity.TokenUserData, callers)
	errs := make([]error, callers)

	var start, done sync.WaitGroup
	start.Add(1)
	for i := range callers {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = refresh()
		}()
	}
	start.Done()
	done.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Token, results[i].Token)
		assert.Equal(t, results[0].RefreshToken, results[i].RefreshToken)
	}

	return results
}

func TestRefreshService_ConcurrentCallersShareOneRotation(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)
	fx.now = fx.now.Add(3 * time.Hour)

	results := refreshConcurrently(t, 16, func() (*entity.TokenUserData, error) {
		return fx.service.Refresh(ctx, session.RefreshToken)
	})

	assert.Equal(t, int32(1), fx.sessions.updateTokenCalls.Load())
	assert.Equal(t, results[0].Token, fx.sessions.get(session.ID).Token)
}

func TestRefreshService_ConcurrentCallersOnDisabledSession(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)
	_, err = fx.ledger.UpdateStatus(ctx, session.ID, entity.StatusDisabled)
	require.NoError(t, err)

	results := refreshConcurrently(t, 16, func() (*entity.TokenUserData, error) {
		return fx.service.Refresh(ctx, session.RefreshToken)
	})

	assert.NotEqual(t, session.Token, results[0].Token)
	assert.Equal(t, int32(1), fx.sessions.updateTokenCalls.Load())

	stored := fx.sessions.get(session.ID)
	assert.Equal(t, results[0].Token, stored.Token)
	assert.Equal(t, entity.StatusEnabled, stored.Status)
}

// slowTokenLedger stretches the rotation write so a second instance arrives while the lock is held.
type slowTokenLedger struct {
	usecase.TokenLedger

	delay time.Duration
}

func (l *slowTokenLedger) UpdateToken(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	time.Sleep(l.delay)

	return l.TokenLedger.UpdateToken(ctx, id, token)
}

func TestRefreshService_InstancesShareRotationThroughRedisLock(t *testing.T) {
	ledgerFx := createTestTokenLedger(t)
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := newTestConfig()
	cfg.Redis = &config.RedisConfig{Prefix: "ag:"}
	locker := infraredis.NewLocker(infraredis.LockerParams{Client: client, Config: cfg, Logger: newDiscardLogger()})
	ledger := &slowTokenLedger{TokenLedger: ledgerFx.ledger, delay: 150 * time.Millisecond}

	newInstance := func(prefix string) *refreshService {
		srv := NewRefreshService(RefreshServiceParams{
			Ledger: ledger,
			Locker: locker,
			Tokens: &seqTokens{prefix: prefix},
			Config: cfg,
			Logger: newDiscardLogger(),
		}).(*refreshService)
		srv.now = func() time.Time { return ledgerFx.now }

		return srv
	}
	instances := []*refreshService{newInstance("first"), newInstance("second")}

	session, err := ledgerFx.ledger.Create(ctx, ledgerFx.user.ID, "", "")
	require.NoError(t, err)
	ledgerFx.now = ledgerFx.now.Add(3 * time.Hour)

	var (
		mu   sync.Mutex
		next int
	)
	results := refreshConcurrently(t, 2, func() (*entity.TokenUserData, error) {
		mu.Lock()
		srv := instances[next]
		next++
		mu.Unlock()

		return srv.Refresh(ctx, session.RefreshToken)
	})

	assert.True(t, strings.HasPrefix(results[0].Token, "first") || strings.HasPrefix(results[0].Token, "second"))
	assert.Equal(t, int32(1), ledgerFx.sessions.updateTokenCalls.Load())
	assert.Equal(t, results[0].Token, ledgerFx.sessions.get(session.ID).Token)
}

func TestRefreshService_BusyLockReturnsRotatedSession(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()
	fx.service.wait = 20 * time.Millisecond

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)

	held, ok, err := fx.locker.Acquire(ctx, refreshLockPrefix+session.RefreshToken, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _, _ = fx.locker.Release(ctx, held) }()

	data, err := fx.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.Token, data.Token)

	fx.now = fx.now.Add(3 * time.Hour)
	_, err = fx.service.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrLockUnavailable)
}

func TestRefreshService_LockUnavailableFailsClosed(t *testing.T) {
	fx := createTestRefreshService(t)
	ctx := context.Background()

	session, err := fx.ledger.Create(ctx, fx.user.ID, "", "")
	require.NoError(t, err)
	fx.now = fx.now.Add(3 * time.Hour)
	fx.locker.unavailable = true

	_, err = fx.service.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrLockUnavailable)
	assert.Equal(t, session.Token, fx.sessions.get(session.ID).Token)
}
