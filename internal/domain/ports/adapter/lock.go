package adapter

import (
	"context"
	"time"
)

// Locker provides per-key mutual exclusion for the engine's critical
// sections (first activation and the expiry status flip). TryLock blocks
// for a bounded time; callers must release with the returned token on every
// exit path. Implementations: in-process mutex map, Redis SetNX.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
