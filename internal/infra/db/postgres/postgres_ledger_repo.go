package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/repository"
	"code-verification-service/internal/infra/metrics"
)

// Ensure implementation satisfies the interface.
var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) repository.LedgerRepository {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) Find(ctx context.Context, tx repository.Tx, code string) (*model.LedgerEntry, error) {
	const q = `
SELECT code, owner_id, activated_at, status
  FROM activation_ledger
 WHERE code = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	var e model.LedgerEntry
	if err := row.Scan(&e.Code, &e.OwnerID, &e.ActivatedAt, &e.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		metrics.IncStoreError("postgres", "ledger_find")
		return nil, domain.ErrReadDatabaseRow
	}
	return &e, nil
}

// Insert relies on the primary key on code: two concurrent first activations
// of the same code cannot both succeed, the loser gets ErrAlreadyExists.
func (r *ledgerRepo) Insert(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry) error {
	const q = `
INSERT INTO activation_ledger (code, owner_id, activated_at, status)
VALUES ($1, $2, $3, $4);
`
	_, err := execSQL(ctx, r.pool, tx, q, entry.Code, entry.OwnerID, entry.ActivatedAt, entry.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		metrics.IncStoreError("postgres", "ledger_insert")
		return err
	}
	return nil
}

// MarkExpired is a one-way flip: the status predicate makes it a no-op for
// absent or already expired codes.
func (r *ledgerRepo) MarkExpired(ctx context.Context, tx repository.Tx, code string) error {
	const q = `
UPDATE activation_ledger
   SET status = $1
 WHERE code = $2 AND status = $3;
`
	_, err := execSQL(ctx, r.pool, tx, q, model.LedgerStatusExpired, code, model.LedgerStatusActive)
	if err != nil {
		metrics.IncStoreError("postgres", "ledger_mark_expired")
	}
	return err
}

func (r *ledgerRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.LedgerEntry, error) {
	const q = `
SELECT code, owner_id, activated_at, status
  FROM activation_ledger
 WHERE status = $1
 ORDER BY activated_at;
`
	rows, err := pickRows(ctx, r.pool, tx, q, model.LedgerStatusActive)
	if err != nil {
		metrics.IncStoreError("postgres", "ledger_list_active")
		return nil, err
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.Code, &e.OwnerID, &e.ActivatedAt, &e.Status); err != nil {
			metrics.IncStoreError("postgres", "ledger_list_active")
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
