// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"log/slog"

	"authgate/config"
	"authgate/internal/domain/service"
	"authgate/internal/errors"

	"google.golang.org/api/idtoken"
)

const providerName = "google"

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// AuthServiceImpl implements service.IDTokenVerifier using Google's published signing keys
type AuthServiceImpl struct {
	clientID string
	validate validateFunc
	logger   *slog.Logger
}

// NewAuthService creates a new Google ID token verifier
func NewAuthService(cfg *config.Config, logger *slog.Logger) service.IDTokenVerifier {
	return &AuthServiceImpl{
		clientID: cfg.GoogleOAuth.ClientID,
		validate: idtoken.Validate,
		logger:   logger,
	}
}

// VerifyIDToken checks signature, issuer, audience and expiry, then maps the claims.
func (s *AuthServiceImpl) VerifyIDToken(ctx context.Context, rawToken string) (*service.OAuthUser, error) {
	if s.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := s.validate(ctx, rawToken, s.clientID)
	if err != nil {
		s.logger.WarnContext(ctx, "Google ID token rejected", slog.Any("error", err))

		return nil, errors.Wrap(err, "invalid ID token")
	}

	if payload.Subject == "" {
		return nil, errors.New("ID token has no subject")
	}

	user := &service.OAuthUser{
		ID:            payload.Subject,
		Email:         stringClaim(payload.Claims, "email"),
		Name:          stringClaim(payload.Claims, "name"),
		AvatarURL:     stringClaim(payload.Claims, "picture"),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
	}

	s.logger.DebugContext(ctx, "Google ID token verified", slog.String("sub", user.ID))

	return user, nil
}

// Provider returns the provider name used to namespace local accounts
func (s *AuthServiceImpl) Provider() string {
	return providerName
}

func stringClaim(claims map[string]any, key string) string {
	v, _ := claims[key].(string)

	return v
}

// email_verified arrives as a bool or, from older issuers, as the string "true".
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
