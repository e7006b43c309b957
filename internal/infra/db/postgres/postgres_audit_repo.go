package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/repository"
	"code-verification-service/internal/infra/metrics"
)

var _ repository.AuditLogRepository = (*auditLogRepo)(nil)

// auditLogRepo keeps the audit table a bounded FIFO window: every append is
// followed by eviction of anything past the retention cap, oldest first by
// (created_at, id). Record IDs are ULIDs, so the id ordering is insertion
// order for records sharing a timestamp.
type auditLogRepo struct {
	pool       *pgxpool.Pool
	maxEntries int
}

func NewAuditLogRepo(pool *pgxpool.Pool, maxEntries int) repository.AuditLogRepository {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	return &auditLogRepo{pool: pool, maxEntries: maxEntries}
}

func (r *auditLogRepo) Append(ctx context.Context, tx repository.Tx, record *model.AuditRecord) error {
	const insert = `
INSERT INTO audit_records (id, created_at, identity, code, outcome, detail)
VALUES ($1, $2, $3, $4, $5, $6);
`
	if _, err := execSQL(ctx, r.pool, tx, insert,
		record.ID, record.CreatedAt, record.Identity, record.Code, record.Outcome, record.Detail,
	); err != nil {
		metrics.IncStoreError("postgres", "audit_append")
		return err
	}

	const evict = `
DELETE FROM audit_records
 WHERE id IN (
	SELECT id FROM audit_records
	 ORDER BY created_at DESC, id DESC
	OFFSET $1
 );
`
	if _, err := execSQL(ctx, r.pool, tx, evict, r.maxEntries); err != nil {
		metrics.IncStoreError("postgres", "audit_evict")
		return err
	}
	return nil
}

func (r *auditLogRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.AuditRecord, error) {
	if limit <= 0 || limit > r.maxEntries {
		limit = r.maxEntries
	}
	const q = `
SELECT id, created_at, identity, code, outcome, detail
  FROM audit_records
 ORDER BY created_at DESC, id DESC
 LIMIT $1;
`
	rows, err := pickRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		metrics.IncStoreError("postgres", "audit_list")
		return nil, err
	}
	defer rows.Close()

	var out []*model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Identity, &rec.Code, &rec.Outcome, &rec.Detail); err != nil {
			metrics.IncStoreError("postgres", "audit_list")
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
