// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a local account that login sessions are issued for.
type User struct {
	ID           uuid.UUID // The Global Unique Identifier (GUID) for the user.
	Account      string    // Unique login name. Never contains ExternalAccountSeparator for local accounts.
	Name         string    // Display name.
	Avatar       string    // Avatar URL.
	Mobile       string    // Mobile number, optional.
	Email        string    // Contact email, optional.
	PasswordHash string    // Hash produced by the configured PasswordHasher. Empty for third-party accounts.
	Status       Status    // Disabled users cannot authenticate.
	CreatedAt    time.Time
	UpdatedAt    time.Time

	External *ExternalIdentity // Set for users created from a third-party login.
}

// ExternalAccountSeparator joins provider and subject in the account name of a third-party user.
const ExternalAccountSeparator = ":"

// ExternalIdentity links a user to an identity issued by a third-party provider.
// Third-party users are looked up by this pair, never by account name.
type ExternalIdentity struct {
	Provider string // e.g. "google"
	Subject  string // Stable subject id issued by the provider.
}

// Info returns the public view of the user.
func (u *User) Info() *UserInfo {
	return &UserInfo{
		ID:     u.ID,
		Name:   u.Name,
		Avatar: u.Avatar,
	}
}

// UserInfo is the part of a user that may be returned to clients.
type UserInfo struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
}

// UserAccount is the result of a registration.
type UserAccount struct {
	UserID  uuid.UUID `json:"userId"`
	Account string    `json:"account"`
}
