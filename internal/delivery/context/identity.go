package context

import (
	"context"

	"authgate/internal/domain/entity"
	"authgate/internal/domain/protocol"

	"github.com/labstack/echo/v4"
)

const (
	// KeyIdentity is the key for the verified caller identity.
	KeyIdentity ContextKey = "identity"

	// KeyEnvelope is the key for the decoded request envelope.
	KeyEnvelope ContextKey = "envelope"
)

// SetIdentity stores the verified identity in echo.Context.
func SetIdentity(c echo.Context, identity *entity.VerifiedIdentity) {
	c.Set(string(KeyIdentity), identity)
}

// GetIdentity returns the verified identity, or nil on routes that were not verified.
func GetIdentity(c echo.Context) *entity.VerifiedIdentity {
	identity, _ := c.Get(string(KeyIdentity)).(*entity.VerifiedIdentity)

	return identity
}

// SetEnvelope stores the decoded request envelope in echo.Context.
func SetEnvelope(c echo.Context, req *protocol.Request) {
	c.Set(string(KeyEnvelope), req)
}

// GetEnvelope returns the decoded request envelope, or nil.
func GetEnvelope(c echo.Context) *protocol.Request {
	req, _ := c.Get(string(KeyEnvelope)).(*protocol.Request)

	return req
}

// WithIdentity returns a new context carrying the verified identity.
func WithIdentity(ctx context.Context, identity *entity.VerifiedIdentity) context.Context {
	return context.WithValue(ctx, KeyIdentity, identity)
}

// GetIdentityFromContext extracts the verified identity from standard context.Context.
func GetIdentityFromContext(ctx context.Context) *entity.VerifiedIdentity {
	identity, _ := ctx.Value(KeyIdentity).(*entity.VerifiedIdentity)

	return identity
}
