package entity

import (
	"time"

	"github.com/google/uuid"
)

// LoginSession is one successful login: an opaque access token plus the refresh token that renews it.
type LoginSession struct {
	ID            uuid.UUID // Login id, also used as the session primary key.
	UserID        uuid.UUID // The user this session belongs to.
	IPAddr        string    // Client address at login.
	Mac           string    // Client device identifier at login.
	Token         string    // Current access token. Replaced on refresh.
	RefreshToken  string    // Stable for the life of the session.
	Status        Status    // Enabled, Disabled (expired) or Deleted (logged out).
	CreatedAt     time.Time
	LastUpdatedAt time.Time // Set on creation and on every token rotation; TTL is measured from here.
}

// ExpiredAt reports whether the session's current token has lived for ttl or longer at now.
func (s *LoginSession) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUpdatedAt) >= ttl
}

// UserCertificate is returned by a successful authentication.
type UserCertificate struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	User         *UserInfo `json:"user"`
}

// TokenUserData links a token pair to its session and user.
type TokenUserData struct {
	LoginID      uuid.UUID `json:"loginId"`
	UserID       uuid.UUID `json:"userId"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
}

// VerifiedIdentity is attached to a request once the envelope has been verified.
// UserID and LoginID are zero for token-exempt requests.
type VerifiedIdentity struct {
	UserID  uuid.UUID
	LoginID uuid.UUID
	Channel int
}

// HasSession reports whether the identity was resolved from a login token.
func (v *VerifiedIdentity) HasSession() bool {
	return v != nil && v.LoginID != uuid.Nil
}
