package impl

import (
	"context"
	"testing"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authenServiceFixtures struct {
	service   usecase.AuthenUsecase
	first     *mockBackend
	second    *mockBackend
	publisher *recordingPublisher
}

func createTestAuthenService(t *testing.T) authenServiceFixtures {
	t.Helper()

	first := newMockBackend("google")
	second := newMockBackend("account")
	publisher := &recordingPublisher{}

	srv := NewAuthenService(AuthenServiceParams{
		Channels:  &staticChannels{backends: []service.AuthBackend{first, second}},
		Publisher: publisher,
		Logger:    newDiscardLogger(),
	})

	t.Cleanup(func() {
		first.AssertExpectations(t)
		second.AssertExpectations(t)
	})

	return authenServiceFixtures{service: srv, first: first, second: second, publisher: publisher}
}

func TestAuthenService_Authenticate_FallsThroughToNextBackend(t *testing.T) {
	fx := createTestAuthenService(t)
	ctx := deliverycontext.WithRequestID(context.Background(), "req-42")

	userID := uuid.New()
	cert := &entity.UserCertificate{Token: "t", RefreshToken: "r", User: &entity.UserInfo{ID: userID}}

	fx.first.On("Authenticate", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrBackendNotApplicable).Once()
	fx.second.On("Authenticate", mock.Anything, mock.MatchedBy(func(c *service.Credentials) bool {
		return c.Account == "alice" && c.Password == "secret" && c.Mac == "mac"
	})).Return(cert, nil).Once()

	got, err := fx.service.Authenticate(ctx, &usecase.LoginInput{Channel: 1, Account: "alice", Password: "secret", Mac: "mac"})
	require.NoError(t, err)
	assert.Same(t, cert, got)

	events := fx.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, service.AuthEventLogin, events[0].Type)
	assert.Equal(t, userID.String(), events[0].UserID)
	assert.Equal(t, 1, events[0].Channel)
	assert.Equal(t, "account", events[0].Backend)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.NotEmpty(t, events[0].ID)
}

func TestAuthenService_Authenticate_TerminalErrorStopsDispatch(t *testing.T) {
	fx := createTestAuthenService(t)

	fx.first.On("LoadUserByToken", mock.Anything, "tok").Return(nil, domainerrors.ErrTokenExpired).Once()

	_, err := fx.service.LoadUserByToken(context.Background(), 1, "tok")
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
	fx.second.AssertNotCalled(t, "LoadUserByToken", mock.Anything, mock.Anything)
}

func TestAuthenService_Authenticate_ReturnsLastDomainError(t *testing.T) {
	fx := createTestAuthenService(t)

	fx.first.On("Authenticate", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrBackendNotApplicable).Once()
	fx.second.On("Authenticate", mock.Anything, mock.Anything).Return(nil, domainerrors.ErrPasswordWrong).Once()

	_, err := fx.service.Authenticate(context.Background(), &usecase.LoginInput{Channel: 1, Account: "alice", Password: "bad"})
	assert.ErrorIs(t, err, domainerrors.ErrPasswordWrong)
	assert.Empty(t, fx.publisher.Events())
}

func TestAuthenService_Authenticate_WrapsForeignErrors(t *testing.T) {
	fx := createTestAuthenService(t)

	fx.first.On("Authenticate", mock.Anything, mock.Anything).Return(nil, errors.New("ldap unreachable")).Once()
	fx.second.On("Authenticate", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := fx.service.Authenticate(context.Background(), &usecase.LoginInput{Channel: 1, Account: "alice", Password: "x"})
	require.Error(t, err)

	appErr, ok := domainerrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.CodeAuthFailure, appErr.RespCode())
}

func TestAuthenService_Authenticate_BlankAccount(t *testing.T) {
	fx := createTestAuthenService(t)

	_, err := fx.service.Authenticate(context.Background(), &usecase.LoginInput{Channel: 1})
	assert.ErrorIs(t, err, domainerrors.ErrAccountBlank)
}

func TestAuthenService_Authenticate_PublishFailureIsIgnored(t *testing.T) {
	fx := createTestAuthenService(t)
	fx.publisher.err = errors.New("topic not found")

	cert := &entity.UserCertificate{Token: "t", User: &entity.UserInfo{ID: uuid.New()}}
	fx.first.On("Authenticate", mock.Anything, mock.Anything).Return(cert, nil).Once()

	got, err := fx.service.Authenticate(context.Background(), &usecase.LoginInput{Channel: 1, IDToken: "id-token"})
	require.NoError(t, err)
	assert.Same(t, cert, got)
}

func TestAuthenService_CancelledContextStopsDispatch(t *testing.T) {
	fx := createTestAuthenService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.service.LoadUserByID(ctx, 1, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthenService_NoBackends(t *testing.T) {
	srv := NewAuthenService(AuthenServiceParams{
		Channels:  &staticChannels{},
		Publisher: &recordingPublisher{},
		Logger:    newDiscardLogger(),
	})

	_, err := srv.Register(context.Background(), &usecase.RegisterInput{Channel: 1, Account: "bob"})
	assert.ErrorIs(t, err, domainerrors.ErrNoBackends)
}

func TestAuthenService_Logout_PublishesEvent(t *testing.T) {
	fx := createTestAuthenService(t)
	userID := uuid.New()

	fx.first.On("Logout", mock.Anything, userID).Return(true, nil).Once()

	ok, err := fx.service.Logout(context.Background(), 7, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	events := fx.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, service.AuthEventLogout, events[0].Type)
	assert.Equal(t, 7, events[0].Channel)
}

func TestAuthenService_PasswordOperationsSkipInapplicableBackends(t *testing.T) {
	fx := createTestAuthenService(t)
	userID := uuid.New()

	fx.first.On("ModifyPassword", mock.Anything, userID, "old", "new").Return(false, domainerrors.ErrBackendNotApplicable).Once()
	fx.second.On("ModifyPassword", mock.Anything, userID, "old", "new").Return(true, nil).Once()
	fx.first.On("ResetPassword", mock.Anything, userID).Return(false, domainerrors.ErrBackendNotApplicable).Once()
	fx.second.On("ResetPassword", mock.Anything, userID).Return(true, nil).Once()

	ok, err := fx.service.ModifyPassword(context.Background(), &usecase.ModifyPasswordInput{Channel: 1, UserID: userID, OldPassword: "old", NewPassword: "new"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.service.ResetPassword(context.Background(), 1, userID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenService_ArgumentChecks(t *testing.T) {
	fx := createTestAuthenService(t)
	ctx := context.Background()

	_, err := fx.service.ModifyPassword(ctx, &usecase.ModifyPasswordInput{Channel: 1, UserID: uuid.New(), OldPassword: "old"})
	assert.ErrorIs(t, err, domainerrors.ErrPasswordBlank)

	_, err = fx.service.ForceModifyPassword(ctx, 1, uuid.Nil, "new")
	assert.ErrorIs(t, err, domainerrors.ErrFailure)

	_, err = fx.service.LoadUserByRefreshToken(ctx, 1, "")
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)

	_, err = fx.service.Register(ctx, &usecase.RegisterInput{Channel: 1})
	assert.ErrorIs(t, err, domainerrors.ErrAccountBlank)
}
