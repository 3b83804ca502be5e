package service

import "context"

// CodeVerifier checks one-time codes (SMS or captcha) issued out of band.
// A code can be consumed at most once.
type CodeVerifier interface {
	// Issue stores code under validID for the verifier's configured lifetime.
	Issue(ctx context.Context, validID, code string) error

	// Verify consumes the code stored under validID and reports whether it matched.
	Verify(ctx context.Context, validID, code string) (bool, error)
}
