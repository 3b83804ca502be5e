package redis

import (
	"context"
	"strings"
	"time"

	"authgate/config"
	"authgate/internal/domain/service"
	"authgate/internal/errors"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// CodeVerifierParams defines the dependencies of the code verifier
type CodeVerifierParams struct {
	fx.In

	Client goredis.UniversalClient
	Config *config.Config
}

type codeVerifier struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCodeVerifier creates a service.CodeVerifier. Codes are consumed with GETDEL so each works once.
func NewCodeVerifier(params CodeVerifierParams) service.CodeVerifier {
	return newCodeVerifier(params.Client, params.Config.Redis.Prefix, params.Config.Auth.CodeTTL)
}

func newCodeVerifier(client goredis.UniversalClient, prefix string, ttl time.Duration) *codeVerifier {
	return &codeVerifier{client: client, prefix: prefix, ttl: ttl}
}

func (v *codeVerifier) key(validID string) string {
	return v.prefix + "code:" + validID
}

func (v *codeVerifier) Issue(ctx context.Context, validID, code string) error {
	return errors.Wrap(v.client.Set(ctx, v.key(validID), code, v.ttl).Err(), "store one-time code")
}

func (v *codeVerifier) Verify(ctx context.Context, validID, code string) (bool, error) {
	if validID == "" || code == "" {
		return false, nil
	}

	stored, err := v.client.GetDel(ctx, v.key(validID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "consume one-time code")
	}

	return strings.EqualFold(stored, strings.TrimSpace(code)), nil
}
