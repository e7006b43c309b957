package repository

import (
	"context"

	"code-verification-service/internal/domain/model"
)

// LedgerRepository is the port for the activation ledger, the source of truth
// for every redeemed code.
type LedgerRepository interface {
	// Find returns the entry for code, or domain.ErrNotFound.
	Find(ctx context.Context, tx Tx, code string) (*model.LedgerEntry, error)
	// Insert creates a new entry. Returns domain.ErrAlreadyExists if an entry
	// for the code is already present (primary-key semantics).
	Insert(ctx context.Context, tx Tx, entry *model.LedgerEntry) error
	// MarkExpired flips the entry's status to expired. No-op if the code is
	// absent or already expired; the flip is one-way.
	MarkExpired(ctx context.Context, tx Tx, code string) error
	// ListActive returns all entries still in active status.
	ListActive(ctx context.Context, tx Tx) ([]*model.LedgerEntry, error)
}
