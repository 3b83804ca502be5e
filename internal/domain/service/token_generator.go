package service

import "github.com/google/uuid"

// TokenGenerator creates opaque session tokens.
type TokenGenerator interface {
	// NewToken returns a fresh, unpredictable access token.
	NewToken() string

	// RefreshToken derives the refresh token of a session from its login id and first access token.
	RefreshToken(loginID uuid.UUID, token string) string
}
