package shared

import (
	"context"
	"time"
)

// KeyedLock is a cooperative mutual-exclusion mechanism scoped to a logical
// string key rather than a physical resource. Implementations must guarantee
// at-most-one holder per key across all cooperating processes.
//
// Holders must never keep a lock longer than the TTL passed to TryAcquire;
// the TTL bounds how long a crashed holder can block other workers.
type KeyedLock interface {
	// TryAcquire attempts to acquire the lock for key without blocking.
	// On success it returns a release function and true. On contention it
	// returns false with a nil release function.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}
