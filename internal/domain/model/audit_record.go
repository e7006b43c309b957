package model

import (
	"time"
)

// AuditRecord captures one verification attempt and its outcome. Records are
// append-only; the audit repository evicts the oldest records beyond its
// retention cap. The ID is a ULID, so lexicographic order is insertion order
// and breaks ties between records sharing a timestamp.
type AuditRecord struct {
	ID        string
	CreatedAt time.Time
	Identity  string
	Code      string
	Outcome   Outcome
	Detail    string
}
