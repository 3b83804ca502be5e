package usecase

import (
	"context"

	"authgate/internal/domain/entity"
	"authgate/internal/domain/protocol"
)

// VerifyOptions tunes request verification per route.
type VerifyOptions struct {
	// SkipToken disables the token check for login-type requests.
	SkipToken bool
}

// RequestVerifier validates an incoming envelope: head, version, time, channel, signature and token.
type RequestVerifier interface {
	Verify(ctx context.Context, req *protocol.Request, opts VerifyOptions) (*entity.VerifiedIdentity, error)
}
