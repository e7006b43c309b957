package repository

import (
	"context"

	"code-verification-service/internal/domain/model"
)

// AuditLogRepository is the port for the bounded append-only audit log.
// The repository owns the retention policy: after an append pushes the log
// past its cap it evicts the oldest records (by timestamp, ties broken by
// record ID order) so the log stays a bounded FIFO window.
type AuditLogRepository interface {
	// Append stores one record and enforces the retention cap.
	Append(ctx context.Context, tx Tx, record *model.AuditRecord) error
	// List returns up to limit records, most recent first. Each call
	// re-queries current state.
	List(ctx context.Context, tx Tx, limit int) ([]*model.AuditRecord, error)
}
