package file

import (
	"context"
	"sort"

	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/repository"
)

var _ repository.AuditLogRepository = (*auditStore)(nil)

// auditStore persists audit.json as a bounded FIFO window. Audit writes
// always run outside the engine's transaction (best-effort relative to the
// verdict), so the tx argument is ignored and the store lock is taken
// directly.
type auditStore struct {
	s *Store
}

func (a *auditStore) Append(ctx context.Context, _ repository.Tx, record *model.AuditRecord) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	records := a.s.loadAudit()
	records = append(records, auditRecordDoc{
		ID:        record.ID,
		CreatedAt: record.CreatedAt,
		Identity:  record.Identity,
		Code:      record.Code,
		Outcome:   string(record.Outcome),
		Detail:    record.Detail,
	})

	// Oldest first by timestamp, ULID breaks ties in insertion order.
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	if excess := len(records) - a.s.maxAudit; excess > 0 {
		records = records[excess:]
	}

	return a.s.writeJSON(auditFile, records)
}

func (a *auditStore) List(ctx context.Context, _ repository.Tx, limit int) ([]*model.AuditRecord, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	records := a.s.loadAudit()
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]*model.AuditRecord, 0, limit)
	for _, doc := range records[:limit] {
		out = append(out, &model.AuditRecord{
			ID:        doc.ID,
			CreatedAt: doc.CreatedAt,
			Identity:  doc.Identity,
			Code:      doc.Code,
			Outcome:   model.Outcome(doc.Outcome),
			Detail:    doc.Detail,
		})
	}
	return out, nil
}
