// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fixedClock lets tests move time forward deterministically.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memLedgerRepo is a small in-memory implementation used by unit tests.
type memLedgerRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.LedgerEntry
	findErr error // used by tests to simulate store failures

	// conflictWith simulates losing a first-use insert race: the next Insert
	// commits this entry instead and reports ErrAlreadyExists, as if a
	// concurrent activation won between the caller's read and write.
	conflictWith *model.LedgerEntry
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{store: make(map[string]*model.LedgerEntry)}
}

func (m *memLedgerRepo) Find(ctx context.Context, tx repository.Tx, code string) (*model.LedgerEntry, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memLedgerRepo) Insert(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictWith != nil {
		winner := *m.conflictWith
		m.store[winner.Code] = &winner
		m.conflictWith = nil
		return domain.ErrAlreadyExists
	}
	if _, exists := m.store[entry.Code]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *entry
	m.store[entry.Code] = &cp
	return nil
}

func (m *memLedgerRepo) MarkExpired(ctx context.Context, tx repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.store[code]; ok && e.Status == model.LedgerStatusActive {
		e.Status = model.LedgerStatusExpired
	}
	return nil
}

func (m *memLedgerRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.LedgerEntry
	for _, e := range m.store {
		if e.Status == model.LedgerStatusActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivatedAt.Before(out[j].ActivatedAt) })
	return out, nil
}

func (m *memLedgerRepo) get(code string) *model.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[code]
}

// memPoolRepo holds pool codes in insertion order.
type memPoolRepo struct {
	mu    sync.RWMutex
	codes []string
}

func newMemPoolRepo(codes ...string) *memPoolRepo {
	return &memPoolRepo{codes: append([]string(nil), codes...)}
}

func (m *memPoolRepo) Contains(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.codes {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPoolRepo) Remove(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.codes {
		if c == code {
			m.codes = append(m.codes[:i], m.codes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memPoolRepo) Add(ctx context.Context, tx repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c == code {
			return nil
		}
	}
	m.codes = append(m.codes, code)
	return nil
}

func (m *memPoolRepo) List(ctx context.Context, tx repository.Tx) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.codes...), nil
}

func (m *memPoolRepo) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.codes)
}

// memAuditRepo enforces the retention cap the way the real stores do.
type memAuditRepo struct {
	mu        sync.Mutex
	records   []*model.AuditRecord
	cap       int
	appendErr error
}

func newMemAuditRepo(capacity int) *memAuditRepo {
	return &memAuditRepo{cap: capacity}
}

func (m *memAuditRepo) Append(ctx context.Context, tx repository.Tx, record *model.AuditRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.records = append(m.records, &cp)
	if m.cap > 0 && len(m.records) > m.cap {
		m.records = m.records[len(m.records)-m.cap:]
	}
	return nil
}

func (m *memAuditRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.AuditRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		cp := *m.records[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memAuditRepo) last() *model.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil
	}
	return m.records[len(m.records)-1]
}

// memTxManager serializes transactions with one mutex, mirroring the file
// backend's single-writer discipline.
type memTxManager struct {
	mu sync.Mutex
}

func (m *memTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// memLocker is a blocking per-key lock for tests.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]bool)} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	deadline := time.Now().Add(ttl)
	for {
		l.mu.Lock()
		if !l.held[key] {
			l.held[key] = true
			l.mu.Unlock()
			return key, nil
		}
		l.mu.Unlock()
		if time.Now().After(deadline) {
			return "", domain.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
