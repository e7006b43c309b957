package repository

import (
	"context"
)

// PoolRepository is the port for the unused-code pool. Implementations must
// consult durable storage on every call so that externally provisioned codes
// are picked up without a restart.
type PoolRepository interface {
	// Contains reports whether code is present in the pool.
	Contains(ctx context.Context, tx Tx, code string) (bool, error)
	// Remove deletes code from the pool, reporting whether it was present.
	Remove(ctx context.Context, tx Tx, code string) (bool, error)
	// Add inserts code into the pool. No-op if already present.
	Add(ctx context.Context, tx Tx, code string) error
	// List returns all pool codes in stored order.
	List(ctx context.Context, tx Tx) ([]string, error)
}
