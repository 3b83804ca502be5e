package service

import (
	"context"
	"time"
)

// AuthEventType distinguishes login from logout events.
type AuthEventType string

const (
	AuthEventLogin  AuthEventType = "login"
	AuthEventLogout AuthEventType = "logout"
)

// AuthEvent is published after a successful login or logout
type AuthEvent struct {
	ID         string        `json:"id"`
	RequestID  string        `json:"request_id,omitempty"` // For distributed tracing
	Type       AuthEventType `json:"type"`
	Channel    int           `json:"channel"`
	UserID     string        `json:"user_id"`
	Backend    string        `json:"backend,omitempty"` // Backend that served the request
	OccurredAt time.Time     `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAuthEvent publishes a login/logout event
	PublishAuthEvent(ctx context.Context, event *AuthEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
