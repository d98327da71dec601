package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired lock.
type UnlockFunc func(ctx context.Context) error

// Locker coordinates access to shared state between processes, e.g. several
// builds writing to the same state directory or Redis database.
type Locker interface {
	// Lock acquires the lock for the given key, blocking until it is held
	// or the context is cancelled. The returned UnlockFunc must be called
	// to release it; the TTL bounds how long a crashed holder can keep the
	// lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
