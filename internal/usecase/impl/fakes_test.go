package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"authgate/config"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		Protocol: &config.ProtocolConfig{MinVersion: 1, Timeout: 600 * time.Second, SignAlgorithm: "md5"},
		Token:    &config.TokenConfig{TTL: 2 * time.Hour},
		Channels: &config.ChannelsConfig{},
		Auth:     &config.AuthConfig{BcryptCost: 4, DefaultPassword: "888888"},
		Lock:     &config.LockConfig{Prefix: "lock:", Lease: time.Minute, Wait: 100 * time.Millisecond, RefreshWait: time.Second},
	}
}

// --- repositories ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[uuid.UUID]*entity.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}

	return repo
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		cp := *u

		return &cp, nil
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByAccount(_ context.Context, account string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Account == account {
			cp := *u

			return &cp, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByExternalID(_ context.Context, provider, subject string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.External != nil && u.External.Provider == provider && u.External.Subject == subject {
			cp := *u

			return &cp, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	r.users[user.ID] = &cp

	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash

	return nil
}

type memSessionRepo struct {
	mu               sync.Mutex
	sessions         map[uuid.UUID]*entity.LoginSession
	findErr          error
	updateTokenCalls atomic.Int32
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*entity.LoginSession)}
}

func (r *memSessionRepo) put(s *entity.LoginSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.sessions[s.ID] = &cp
}

func (r *memSessionRepo) get(id uuid.UUID) *entity.LoginSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *r.sessions[id]

	return &cp
}

func (r *memSessionRepo) Create(_ context.Context, session *entity.LoginSession) error {
	r.put(session)

	return nil
}

func (r *memSessionRepo) find(match func(*entity.LoginSession) bool) (*entity.LoginSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, s := range r.sessions {
		if match(s) {
			cp := *s

			return &cp, nil
		}
	}

	return nil, repository.ErrLoginSessionNotFound
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.LoginSession, error) {
	return r.find(func(s *entity.LoginSession) bool { return s.ID == id })
}

func (r *memSessionRepo) FindByToken(_ context.Context, token string) (*entity.LoginSession, error) {
	return r.find(func(s *entity.LoginSession) bool { return s.Token == token })
}

func (r *memSessionRepo) FindByRefreshToken(_ context.Context, refreshToken string) (*entity.LoginSession, error) {
	return r.find(func(s *entity.LoginSession) bool { return s.RefreshToken == refreshToken })
}

func (r *memSessionRepo) FindLatestByUserID(_ context.Context, userID uuid.UUID) (*entity.LoginSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *entity.LoginSession
	for _, s := range r.sessions {
		if s.UserID != userID || s.Status == entity.StatusDeleted {
			continue
		}
		if latest == nil || s.LastUpdatedAt.After(latest.LastUpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrLoginSessionNotFound
	}
	cp := *latest

	return &cp, nil
}

func (r *memSessionRepo) mutate(id uuid.UUID, guard func(*entity.LoginSession) bool, apply func(*entity.LoginSession)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Status == entity.StatusDeleted || !guard(s) {
		return false
	}
	apply(s)

	return true
}

func (r *memSessionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.Status) (bool, error) {
	return r.mutate(id, func(*entity.LoginSession) bool { return true }, func(s *entity.LoginSession) { s.Status = status }), nil
}

func (r *memSessionRepo) CompareAndSetStatus(_ context.Context, id uuid.UUID, expected, next entity.Status) (bool, error) {
	return r.mutate(id, func(s *entity.LoginSession) bool { return s.Status == expected }, func(s *entity.LoginSession) { s.Status = next }), nil
}

func (r *memSessionRepo) UpdateToken(_ context.Context, id uuid.UUID, token string, updatedAt time.Time) (bool, error) {
	r.updateTokenCalls.Add(1)

	return r.mutate(id, func(*entity.LoginSession) bool { return true }, func(s *entity.LoginSession) {
		s.Token = token
		s.LastUpdatedAt = updatedAt
	}), nil
}

func (r *memSessionRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status != entity.StatusDeleted {
			s.Status = entity.StatusDeleted
			n++
		}
	}

	return n, nil
}

type memTxManager struct {
	users    repository.UserRepository
	sessions repository.LoginSessionRepository
}

func (m *memTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(m)
}

func (m *memTxManager) NewUserRepository() repository.UserRepository {
	return m.users
}

func (m *memTxManager) NewLoginSessionRepository() repository.LoginSessionRepository {
	return m.sessions
}

type memChannelRepo struct {
	mu        sync.Mutex
	channels  map[int]*entity.Channel
	backends  map[int][]string
	findCalls int
}

func newMemChannelRepo(channels ...*entity.Channel) *memChannelRepo {
	repo := &memChannelRepo{channels: make(map[int]*entity.Channel), backends: make(map[int][]string)}
	for _, c := range channels {
		repo.channels[c.Code] = c
	}

	return repo
}

func (r *memChannelRepo) FindByCode(_ context.Context, code int) (*entity.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findCalls++
	if c, ok := r.channels[code]; ok {
		cp := *c

		return &cp, nil
	}

	return nil, repository.ErrChannelNotFound
}

func (r *memChannelRepo) FindBackendIDs(_ context.Context, code int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backends[code], nil
}

// --- services ---

type memChannelCache struct {
	mu       sync.Mutex
	channels map[int]entity.Channel
	getErr   error
}

func newMemChannelCache() *memChannelCache {
	return &memChannelCache{channels: make(map[int]entity.Channel)}
}

func (c *memChannelCache) Get(_ context.Context, code int) (*entity.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}
	if ch, ok := c.channels[code]; ok {
		return &ch, nil
	}

	return nil, nil
}

func (c *memChannelCache) Set(_ context.Context, channel *entity.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.channels[channel.Code] = *channel

	return nil
}

func (c *memChannelCache) Invalidate(_ context.Context, code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.channels, code)

	return nil
}

// memLocker is a process-local Locker with per-key mutual exclusion.
type memLocker struct {
	mu          sync.Mutex
	held        map[string]string
	unavailable bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (*service.Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unavailable {
		return nil, false, domainerrors.ErrLockUnavailable
	}
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.held[key] = token

	return &service.Lease{Key: key, Token: token}, true, nil
}

func (l *memLocker) TryAcquire(ctx context.Context, key string, lease, wait time.Duration) (*service.Lease, bool, error) {
	deadline := time.Now().Add(wait)
	for {
		held, ok, err := l.Acquire(ctx, key, lease)
		if err != nil || ok {
			return held, ok, err
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (l *memLocker) Release(_ context.Context, held *service.Lease) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[held.Key] != held.Token {
		return false, nil
	}
	delete(l.held, held.Key)

	return true, nil
}

func (l *memLocker) WithLock(ctx context.Context, key string, wait time.Duration, fn func(ctx context.Context) error) error {
	if wait <= 0 {
		wait = time.Second
	}

	held, ok, err := l.TryAcquire(ctx, key, time.Minute, wait)
	if err != nil {
		return err
	}
	if !ok {
		return domainerrors.ErrLockUnavailable
	}
	defer func() { _, _ = l.Release(ctx, held) }()

	return fn(ctx)
}

type seqTokens struct {
	prefix string
	n      atomic.Int64
}

func (g *seqTokens) NewToken() string {
	prefix := g.prefix
	if prefix == "" {
		prefix = "token"
	}

	return fmt.Sprintf("%s-%d", prefix, g.n.Add(1))
}

func (g *seqTokens) RefreshToken(loginID uuid.UUID, token string) string {
	return "refresh-" + loginID.String() + "-" + token
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (plainHasher) Check(password, hash string) bool {
	return hash == "hash:"+password
}

type memCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *memCodes) Issue(_ context.Context, validID, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.codes == nil {
		c.codes = make(map[string]string)
	}
	c.codes[validID] = code

	return nil
}

func (c *memCodes) Verify(_ context.Context, validID, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.codes[validID]
	delete(c.codes, validID)

	return ok && stored == code, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.AuthEvent
	err    error
}

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, event *service.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) Events() []*service.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*service.AuthEvent(nil), p.events...)
}

// mockBackend is a testify mock of service.AuthBackend.
type mockBackend struct {
	mock.Mock

	id string
}

func newMockBackend(id string) *mockBackend {
	return &mockBackend{id: id}
}

func (m *mockBackend) ID() string {
	return m.id
}

func (m *mockBackend) Authenticate(ctx context.Context, creds *service.Credentials) (*entity.UserCertificate, error) {
	args := m.Called(ctx, creds)
	cert, _ := args.Get(0).(*entity.UserCertificate)

	return cert, args.Error(1)
}

func (m *mockBackend) Logout(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)

	return args.Bool(0), args.Error(1)
}

func (m *mockBackend) ModifyPassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (bool, error) {
	args := m.Called(ctx, userID, oldPassword, newPassword)

	return args.Bool(0), args.Error(1)
}

func (m *mockBackend) ForceModifyPassword(ctx context.Context, userID uuid.UUID, newPassword string) (bool, error) {
	args := m.Called(ctx, userID, newPassword)

	return args.Bool(0), args.Error(1)
}

func (m *mockBackend) ResetPassword(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)

	return args.Bool(0), args.Error(1)
}

func (m *mockBackend) Register(ctx context.Context, reg *service.Registration) (*entity.UserAccount, error) {
	args := m.Called(ctx, reg)
	account, _ := args.Get(0).(*entity.UserAccount)

	return account, args.Error(1)
}

func (m *mockBackend) LoadUserByID(ctx context.Context, userID uuid.UUID) (*entity.UserInfo, error) {
	args := m.Called(ctx, userID)
	info, _ := args.Get(0).(*entity.UserInfo)

	return info, args.Error(1)
}

func (m *mockBackend) LoadUserByToken(ctx context.Context, token string) (*entity.TokenUserData, error) {
	args := m.Called(ctx, token)
	data, _ := args.Get(0).(*entity.TokenUserData)

	return data, args.Error(1)
}

func (m *mockBackend) LoadUserByRefreshToken(ctx context.Context, refreshToken string) (*entity.TokenUserData, error) {
	args := m.Called(ctx, refreshToken)
	data, _ := args.Get(0).(*entity.TokenUserData)

	return data, args.Error(1)
}

func (m *mockBackend) LoadLastRefreshTokenByUser(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)

	return args.String(0), args.Error(1)
}

// staticChannels is a ChannelRegistry backed by fixed values.
type staticChannels struct {
	mu        sync.Mutex
	channel   *entity.Channel
	backends  []service.AuthBackend
	loadErr   error
	loadCalls int
}

func (s *staticChannels) LoadChannel(_ context.Context, code int) (*entity.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadCalls++
	if code < 0 {
		return nil, domainerrors.ErrChannelEmpty
	}
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.channel == nil || s.channel.Code != code {
		return nil, domainerrors.ErrChannelNotFound
	}
	cp := *s.channel

	return &cp, nil
}

func (s *staticChannels) LoadBackends(context.Context, int) ([]service.AuthBackend, error) {
	if len(s.backends) == 0 {
		return nil, domainerrors.ErrNoBackends
	}

	return s.backends, nil
}
