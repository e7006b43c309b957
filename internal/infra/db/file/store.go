// File: internal/infra/db/file/store.go
//
// Embedded file-backed storage. State lives in three small JSON documents in
// one directory: codes.json (the unused-code pool, an ordered list),
// ledger.json (code -> activation entry) and audit.json (bounded record
// list). Documents are rewritten whole on every mutation, which is fine at
// the expected mutation rate, and re-read on every access so codes
// provisioned by external tooling are picked up without a restart.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/ports/repository"
)

const (
	poolFile   = "codes.json"
	ledgerFile = "ledger.json"
	auditFile  = "audit.json"
)

type ledgerEntryDoc struct {
	Owner       string    `json:"owner"`
	ActivatedAt time.Time `json:"activated_at"`
	Status      string    `json:"status"`
}

type auditRecordDoc struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Identity  string    `json:"identity"`
	Code      string    `json:"code"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
}

// Store owns the data directory. A single mutex serializes all mutations;
// SQLite-style fine-grained locking buys nothing at this scale.
type Store struct {
	dir      string
	maxAudit int
	mu       sync.Mutex
	log      *zerolog.Logger
}

func NewStore(dir string, maxAudit int, logger *zerolog.Logger) (*Store, error) {
	if maxAudit <= 0 {
		maxAudit = 50
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, maxAudit: maxAudit, log: logger}, nil
}

func (s *Store) Ledger() repository.LedgerRepository { return &ledgerStore{s} }
func (s *Store) Pool() repository.PoolRepository     { return &poolStore{s} }
func (s *Store) Audit() repository.AuditLogRepository {
	return &auditStore{s}
}

// fileTx is a write-through snapshot of pool and ledger state held while the
// store mutex is locked. Nothing touches disk until WithTx commits.
type fileTx struct {
	pool        []string
	ledger      map[string]ledgerEntryDoc
	dirtyPool   bool
	dirtyLedger bool
}

var _ repository.TransactionManager = (*Store)(nil)

// WithTx loads current state under the store lock, runs fn against the
// snapshot, and persists changed documents only if fn succeeds. An error
// from fn discards the snapshot, so partial mutations never reach disk.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &fileTx{
		pool:   s.loadPool(),
		ledger: s.loadLedger(),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	// The ledger must hit disk before the pool. If the pool write then fails
	// the code exists in both documents, which the ledger-first read
	// precedence masks; the reverse order would strand a removed code with
	// no ledger entry.
	if tx.dirtyLedger {
		if err := s.writeJSON(ledgerFile, tx.ledger); err != nil {
			return fmt.Errorf("persist ledger: %w", err)
		}
	}
	if tx.dirtyPool {
		if err := s.writeJSON(poolFile, tx.pool); err != nil {
			return fmt.Errorf("persist pool: %w", err)
		}
	}
	return nil
}

// snapshot returns the transaction state to operate on. With a nil tx the
// caller runs non-transactionally: the store lock is taken for the single
// call and changed documents are persisted immediately.
func (s *Store) snapshot(tx repository.Tx) (*fileTx, func(*fileTx) error, error) {
	switch v := tx.(type) {
	case *fileTx:
		// WithTx holds the lock and persists on commit.
		return v, func(*fileTx) error { return nil }, nil
	case nil:
		s.mu.Lock()
		snap := &fileTx{pool: s.loadPool(), ledger: s.loadLedger()}
		commit := func(t *fileTx) error {
			defer s.mu.Unlock()
			// Same write order as WithTx: ledger before pool.
			if t.dirtyLedger {
				if err := s.writeJSON(ledgerFile, t.ledger); err != nil {
					return fmt.Errorf("persist ledger: %w", err)
				}
			}
			if t.dirtyPool {
				if err := s.writeJSON(poolFile, t.pool); err != nil {
					return fmt.Errorf("persist pool: %w", err)
				}
			}
			return nil
		}
		return snap, commit, nil
	default:
		return nil, nil, domain.ErrInvalidExecContext
	}
}

// loadPool reads codes.json. Absent or malformed data degrades to an empty
// pool rather than an error: data absence is not fatal for reads.
func (s *Store) loadPool() []string {
	var pool []string
	if err := s.readJSON(poolFile, &pool); err != nil {
		s.log.Warn().Err(err).Str("file", poolFile).Msg("pool unreadable, treating as empty")
		return nil
	}
	return pool
}

func (s *Store) loadLedger() map[string]ledgerEntryDoc {
	ledger := make(map[string]ledgerEntryDoc)
	if err := s.readJSON(ledgerFile, &ledger); err != nil {
		s.log.Warn().Err(err).Str("file", ledgerFile).Msg("ledger unreadable, treating as empty")
		return make(map[string]ledgerEntryDoc)
	}
	if ledger == nil {
		ledger = make(map[string]ledgerEntryDoc)
	}
	return ledger
}

func (s *Store) loadAudit() []auditRecordDoc {
	var records []auditRecordDoc
	if err := s.readJSON(auditFile, &records); err != nil {
		s.log.Warn().Err(err).Str("file", auditFile).Msg("audit log unreadable, treating as empty")
		return nil
	}
	return records
}

func (s *Store) readJSON(name string, v interface{}) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// writeJSON rewrites a document atomically via temp file + rename.
func (s *Store) writeJSON(name string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
