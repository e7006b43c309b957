package file

import (
	"context"

	"code-verification-service/internal/domain/ports/repository"
)

var _ repository.PoolRepository = (*poolStore)(nil)

// poolStore keeps the unused-code pool as an ordered list in codes.json,
// reloaded on every call so externally added codes are seen without restart.
type poolStore struct {
	s *Store
}

func (p *poolStore) Contains(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	snap, commit, err := p.s.snapshot(tx)
	if err != nil {
		return false, err
	}
	defer func() { _ = commit(snap) }()

	for _, c := range snap.pool {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

func (p *poolStore) Remove(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	snap, commit, err := p.s.snapshot(tx)
	if err != nil {
		return false, err
	}

	removed := false
	kept := snap.pool[:0]
	for _, c := range snap.pool {
		if c == code {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if removed {
		snap.pool = kept
		snap.dirtyPool = true
	}
	return removed, commit(snap)
}

func (p *poolStore) Add(ctx context.Context, tx repository.Tx, code string) error {
	snap, commit, err := p.s.snapshot(tx)
	if err != nil {
		return err
	}

	for _, c := range snap.pool {
		if c == code {
			return commit(snap)
		}
	}
	snap.pool = append(snap.pool, code)
	snap.dirtyPool = true
	return commit(snap)
}

func (p *poolStore) List(ctx context.Context, tx repository.Tx) ([]string, error) {
	snap, commit, err := p.s.snapshot(tx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = commit(snap) }()

	out := make([]string, len(snap.pool))
	copy(out, snap.pool)
	return out, nil
}
