package file

import (
	"context"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerStore)(nil)

type ledgerStore struct {
	s *Store
}

func (l *ledgerStore) Find(ctx context.Context, tx repository.Tx, code string) (*model.LedgerEntry, error) {
	snap, commit, err := l.s.snapshot(tx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = commit(snap) }()

	doc, ok := snap.ledger[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entryFromDoc(code, doc), nil
}

func (l *ledgerStore) Insert(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry) error {
	snap, commit, err := l.s.snapshot(tx)
	if err != nil {
		return err
	}

	if _, exists := snap.ledger[entry.Code]; exists {
		_ = commit(snap)
		return domain.ErrAlreadyExists
	}
	snap.ledger[entry.Code] = ledgerEntryDoc{
		Owner:       entry.OwnerID,
		ActivatedAt: entry.ActivatedAt,
		Status:      string(entry.Status),
	}
	snap.dirtyLedger = true
	return commit(snap)
}

func (l *ledgerStore) MarkExpired(ctx context.Context, tx repository.Tx, code string) error {
	snap, commit, err := l.s.snapshot(tx)
	if err != nil {
		return err
	}

	doc, ok := snap.ledger[code]
	if ok && doc.Status == string(model.LedgerStatusActive) {
		doc.Status = string(model.LedgerStatusExpired)
		snap.ledger[code] = doc
		snap.dirtyLedger = true
	}
	return commit(snap)
}

func (l *ledgerStore) ListActive(ctx context.Context, tx repository.Tx) ([]*model.LedgerEntry, error) {
	snap, commit, err := l.s.snapshot(tx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = commit(snap) }()

	var out []*model.LedgerEntry
	for code, doc := range snap.ledger {
		if doc.Status != string(model.LedgerStatusActive) {
			continue
		}
		out = append(out, entryFromDoc(code, doc))
	}
	return out, nil
}

func entryFromDoc(code string, doc ledgerEntryDoc) *model.LedgerEntry {
	return &model.LedgerEntry{
		Code:        code,
		OwnerID:     doc.Owner,
		ActivatedAt: doc.ActivatedAt,
		Status:      model.LedgerStatus(doc.Status),
	}
}
