package impl

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"authgate/config"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/protocol"
	"authgate/internal/usecase"

	"go.uber.org/fx"
)

// verifierService implements the RequestVerifier interface.
type verifierService struct {
	channels   usecase.ChannelRegistry
	authen     usecase.AuthenUsecase
	minVersion int
	timeout    time.Duration
	algorithm  protocol.Algorithm
	now        func() time.Time
	logger     *slog.Logger
}

// VerifierServiceParams holds dependencies for VerifierService, injected by Fx.
type VerifierServiceParams struct {
	fx.In

	Channels usecase.ChannelRegistry
	Authen   usecase.AuthenUsecase
	Config   *config.Config
	Logger   *slog.Logger
}

// NewVerifierService is the constructor for verifierService.
func NewVerifierService(params VerifierServiceParams) (usecase.RequestVerifier, error) {
	cfg := params.Config.Protocol

	algorithm, err := protocol.ParseAlgorithm(cfg.SignAlgorithm)
	if err != nil {
		return nil, err
	}

	return &verifierService{
		channels:   params.Channels,
		authen:     params.Authen,
		minVersion: cfg.MinVersion,
		timeout:    cfg.Timeout,
		algorithm:  algorithm,
		now:        time.Now,
		logger:     params.Logger,
	}, nil
}

// Verify runs the checks in a fixed order and stops at the first failure.
func (srv *verifierService) Verify(ctx context.Context, req *protocol.Request, opts usecase.VerifyOptions) (*entity.VerifiedIdentity, error) {
	if req == nil || req.Head == nil {
		return nil, domainerrors.ErrHeadMissing
	}
	head := req.Head

	if head.Version < 1 {
		return nil, domainerrors.ErrVersion
	}
	if head.Version < srv.minVersion {
		return nil, domainerrors.ErrVersionUpdate
	}

	if err := srv.verifyTime(head); err != nil {
		return nil, err
	}

	code := head.ChannelCode()
	channel, err := srv.channels.LoadChannel(ctx, code)
	if err != nil {
		return nil, err
	}
	if channel.Status != entity.StatusEnabled {
		return nil, domainerrors.ErrChannelDisabled
	}

	if channel.RequiresSignature() {
		if err := srv.verifySign(req, channel); err != nil {
			return nil, err
		}
	}

	identity := &entity.VerifiedIdentity{Channel: code}
	if opts.SkipToken {
		return identity, nil
	}

	data, err := srv.verifyToken(ctx, code, head.Token)
	if err != nil {
		return nil, err
	}
	identity.UserID = data.UserID
	identity.LoginID = data.LoginID

	return identity, nil
}

func (srv *verifierService) verifyTime(head *protocol.Head) error {
	if head.Time <= 0 {
		return domainerrors.ErrTimeInvalid
	}
	if srv.timeout > 0 && srv.now().Sub(head.Timestamp()) > srv.timeout {
		return domainerrors.ErrTimeExpired
	}

	return nil
}

func (srv *verifierService) verifySign(req *protocol.Request, channel *entity.Channel) error {
	if req.Head.Sign == "" {
		return domainerrors.ErrSignEmpty
	}

	params, err := req.SignParams()
	if err != nil {
		return domainerrors.ErrSignature.WithDetails(err.Error())
	}

	secret := channel.Secret
	if secret == "" {
		secret = strconv.FormatInt(req.Head.Time, 10)
	}

	if !protocol.VerifySign(params, secret, req.Head.Sign, srv.algorithm) {
		return domainerrors.ErrSignature
	}

	return nil
}

// verifyToken fails closed: anything other than a token lifecycle error becomes TokenInvalid.
func (srv *verifierService) verifyToken(ctx context.Context, channel int, token string) (*entity.TokenUserData, error) {
	if token == "" {
		return nil, domainerrors.ErrTokenInvalid
	}

	data, err := srv.authen.LoadUserByToken(ctx, channel, token)
	if err != nil {
		if domainerrors.IsTerminal(err) {
			return nil, err
		}
		requestLogger(ctx, srv.logger).Warn("Token lookup failed", slog.Int("channel", channel), slog.Any("error", err))

		return nil, domainerrors.ErrTokenInvalid
	}
	if data == nil {
		return nil, domainerrors.ErrTokenInvalid
	}

	return data, nil
}
