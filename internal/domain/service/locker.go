package service

import (
	"context"
	"time"
)

// Lease is a held distributed lock. Token identifies the holder so only it can release the key.
type Lease struct {
	Key   string
	Token string
}

// Locker is a cross-process mutual exclusion primitive with leases that expire on their own.
type Locker interface {
	// Acquire makes a single attempt. ok is false when another holder owns the key.
	Acquire(ctx context.Context, key string, lease time.Duration) (held *Lease, ok bool, err error)

	// TryAcquire retries Acquire until it succeeds, wait elapses or ctx is done.
	TryAcquire(ctx context.Context, key string, lease, wait time.Duration) (held *Lease, ok bool, err error)

	// Release deletes the key only if it is still held by this lease.
	Release(ctx context.Context, held *Lease) (bool, error)

	// WithLock runs fn while holding key using the configured lease. wait <= 0 uses the configured wait.
	// It returns ErrLockUnavailable when the lock cannot be obtained.
	WithLock(ctx context.Context, key string, wait time.Duration, fn func(ctx context.Context) error) error
}
