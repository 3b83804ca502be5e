package impl

import (
	"context"
	"strconv"
	"testing"
	"time"

	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/protocol"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway wires the real use cases over in-memory stores.
type gateway struct {
	authen   usecase.AuthenUsecase
	verifier *verifierService
	ledger   *tokenLedger
	refresh  *refreshService
	sessions *memSessionRepo
	now      time.Time
}

func newGateway(t *testing.T) *gateway {
	t.Helper()

	gw := &gateway{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return gw.now }

	user := &entity.User{ID: uuid.New(), Account: "alice", Name: "Alice", PasswordHash: "hash:secret", Status: entity.StatusEnabled}
	users := newMemUserRepo(user)
	gw.sessions = newMemSessionRepo()
	cfg := newTestConfig()
	cfg.Channels.Backends = map[string][]string{"1": {AccountBackendID}, "2": {AccountBackendID}}

	gw.ledger = NewTokenLedger(TokenLedgerParams{
		TxManager:   &memTxManager{users: users, sessions: gw.sessions},
		SessionRepo: gw.sessions,
		Tokens:      &seqTokens{},
		Config:      cfg,
		Logger:      newDiscardLogger(),
	}).(*tokenLedger)
	gw.ledger.now = clock

	gw.refresh = NewRefreshService(RefreshServiceParams{
		Ledger: gw.ledger,
		Locker: newMemLocker(),
		Tokens: &seqTokens{prefix: "rotated"},
		Config: newTestConfig(),
		Logger: newDiscardLogger(),
	}).(*refreshService)
	gw.refresh.now = clock

	account := NewAccountBackend(AccountBackendParams{
		UserRepo:  users,
		Ledger:    gw.ledger,
		Refresher: gw.refresh,
		Hasher:    plainHasher{},
		Codes:     &memCodes{},
		Config:    cfg,
		Logger:    newDiscardLogger(),
	})

	channels := NewChannelService(ChannelServiceParams{
		ChannelRepo: newMemChannelRepo(
			&entity.Channel{Code: 1, Name: "app", Status: entity.StatusEnabled},
			&entity.Channel{Code: 2, Name: "partner", VerifyType: entity.VerifySignature, Status: entity.StatusEnabled},
		),
		Cache:    newMemChannelCache(),
		Backends: []service.AuthBackend{account},
		Config:   cfg,
		Logger:   newDiscardLogger(),
	})

	gw.authen = NewAuthenService(AuthenServiceParams{Channels: channels, Publisher: &recordingPublisher{}, Logger: newDiscardLogger()})

	verifier, err := NewVerifierService(VerifierServiceParams{Channels: channels, Authen: gw.authen, Config: cfg, Logger: newDiscardLogger()})
	require.NoError(t, err)
	gw.verifier = verifier.(*verifierService)
	gw.verifier.now = clock

	return gw
}

func TestScenario_LoginThenAuthenticatedRequest(t *testing.T) {
	gw := newGateway(t)
	ctx := context.Background()

	_, err := gw.verifier.Verify(ctx, newRequest(1, "", gw.now, `{"account":"alice","password":"secret"}`), usecase.VerifyOptions{SkipToken: true})
	require.NoError(t, err)

	cert, err := gw.authen.Authenticate(ctx, &usecase.LoginInput{Channel: 1, Account: "alice", Password: "secret"})
	require.NoError(t, err)

	identity, err := gw.verifier.Verify(ctx, newRequest(1, cert.Token, gw.now, ""), usecase.VerifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, cert.User.ID, identity.UserID)
}

func TestScenario_ExpiredTokenThenRefresh(t *testing.T) {
	gw := newGateway(t)
	ctx := context.Background()

	cert, err := gw.authen.Authenticate(ctx, &usecase.LoginInput{Channel: 1, Account: "alice", Password: "secret"})
	require.NoError(t, err)

	gw.now = gw.now.Add(2*time.Hour + time.Second)

	_, err = gw.verifier.Verify(ctx, newRequest(1, cert.Token, gw.now, ""), usecase.VerifyOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	_, err = gw.verifier.Verify(ctx, newRequest(1, cert.Token, gw.now, ""), usecase.VerifyOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired, "expiry is sticky once persisted")

	data, err := gw.authen.LoadUserByRefreshToken(ctx, 1, cert.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, cert.Token, data.Token)
	assert.Equal(t, cert.RefreshToken, data.RefreshToken)

	_, err = gw.verifier.Verify(ctx, newRequest(1, data.Token, gw.now, ""), usecase.VerifyOptions{})
	assert.NoError(t, err)

	_, err = gw.verifier.Verify(ctx, newRequest(1, cert.Token, gw.now, ""), usecase.VerifyOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid, "the replaced token is unknown")
}

func TestScenario_LogoutInvalidatesTokens(t *testing.T) {
	gw := newGateway(t)
	ctx := context.Background()

	cert, err := gw.authen.Authenticate(ctx, &usecase.LoginInput{Channel: 1, Account: "alice", Password: "secret"})
	require.NoError(t, err)

	ok, err := gw.authen.Logout(ctx, 1, cert.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = gw.verifier.Verify(ctx, newRequest(1, cert.Token, gw.now, ""), usecase.VerifyOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid)

	_, err = gw.authen.LoadUserByRefreshToken(ctx, 1, cert.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
}

func TestScenario_SignatureMismatchOnSignedChannel(t *testing.T) {
	gw := newGateway(t)
	ctx := context.Background()

	req := newRequest(2, "", gw.now, `{"account":"alice","password":"secret"}`)
	params, err := req.SignParams()
	require.NoError(t, err)
	sign, err := protocol.Sign(params, strconv.FormatInt(req.Head.Time, 10), protocol.AlgorithmMD5)
	require.NoError(t, err)
	req.Head.Sign = sign

	_, err = gw.verifier.Verify(ctx, req, usecase.VerifyOptions{SkipToken: true})
	require.NoError(t, err)

	req.Head.Time++
	_, err = gw.verifier.Verify(ctx, req, usecase.VerifyOptions{SkipToken: true})
	assert.ErrorIs(t, err, domainerrors.ErrSignature)
}
