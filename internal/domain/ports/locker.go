package ports

import (
	"context"
	"time"
)

// Locker provides mutual exclusion across processes
type Locker interface {
	// TryAcquire attempts to take the lock without waiting.
	// When acquired is false, release is nil.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}
