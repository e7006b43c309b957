package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/ports/repository"
	"code-verification-service/internal/infra/metrics"
)

var _ repository.PoolRepository = (*poolRepo)(nil)

// poolRepo stores the unused-code pool in a keyed table. Every call hits the
// database, so codes provisioned by external tooling show up immediately.
type poolRepo struct {
	pool *pgxpool.Pool
}

func NewPoolRepo(pool *pgxpool.Pool) repository.PoolRepository {
	return &poolRepo{pool: pool}
}

func (r *poolRepo) Contains(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	// SELECT EXISTS stops on the first match.
	const q = `SELECT EXISTS(SELECT 1 FROM code_pool WHERE code = $1);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		metrics.IncStoreError("postgres", "pool_contains")
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *poolRepo) Remove(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `DELETE FROM code_pool WHERE code = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		metrics.IncStoreError("postgres", "pool_remove")
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *poolRepo) Add(ctx context.Context, tx repository.Tx, code string) error {
	const q = `INSERT INTO code_pool (code) VALUES ($1) ON CONFLICT (code) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		metrics.IncStoreError("postgres", "pool_add")
	}
	return err
}

func (r *poolRepo) List(ctx context.Context, tx repository.Tx) ([]string, error) {
	const q = `SELECT code FROM code_pool ORDER BY added_at, code;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		metrics.IncStoreError("postgres", "pool_list")
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			metrics.IncStoreError("postgres", "pool_list")
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, code)
	}
	return out, rows.Err()
}
