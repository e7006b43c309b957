package model

import (
	"time"
)

// LedgerStatus is the lifecycle state of a redeemed code.
type LedgerStatus string

const (
	LedgerStatusActive  LedgerStatus = "active"
	LedgerStatusExpired LedgerStatus = "expired"
)

// LedgerEntry is the durable record created when a code is activated for the
// first time. The code itself is the primary key: at most one entry may ever
// exist for a given code, and the entry is never deleted. The only legal
// mutation is the one-way status flip active -> expired.
type LedgerEntry struct {
	Code        string
	OwnerID     string
	ActivatedAt time.Time
	Status      LedgerStatus
}

// Expired reports whether the entry's validity window has elapsed at now.
// It does not consult Status; callers decide whether to flip.
func (e *LedgerEntry) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(e.ActivatedAt) >= window
}

// Remaining returns the time left in the validity window at now, clamped at zero.
func (e *LedgerEntry) Remaining(now time.Time, window time.Duration) time.Duration {
	left := window - now.Sub(e.ActivatedAt)
	if left < 0 {
		return 0
	}
	return left
}

// OwnedBy reports whether identity owns this entry. Empty identities never
// match: an absent principal cannot own a code.
func (e *LedgerEntry) OwnedBy(identity string) bool {
	return identity != "" && e.OwnerID == identity
}
