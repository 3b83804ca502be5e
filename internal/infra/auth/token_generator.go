package auth

import (
	"crypto/md5" //nolint:gosec // token format shared with existing clients; entropy comes from uuid v4
	"encoding/hex"
	"strconv"
	"time"

	"authgate/internal/domain/service"

	"github.com/google/uuid"
)

// tokenGenerator produces 32-char hex tokens.
type tokenGenerator struct {
	now func() time.Time
}

// NewTokenGenerator returns the default service.TokenGenerator.
func NewTokenGenerator() service.TokenGenerator {
	return &tokenGenerator{now: time.Now}
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// NewToken digests a random uuid salted with the current time.
func (g *tokenGenerator) NewToken() string {
	return md5Hex(md5Hex(uuid.NewString()) + strconv.FormatInt(g.now().UnixMilli(), 10))
}

// RefreshToken binds the refresh token to the login id and the first access token.
func (g *tokenGenerator) RefreshToken(loginID uuid.UUID, token string) string {
	return md5Hex(md5Hex(loginID.String()) + token)
}
