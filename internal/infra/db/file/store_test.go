//go:build !integration

// File: internal/infra/db/file/store_test.go
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/repository"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	l := zerolog.New(io.Discard)
	st, err := NewStore(dir, 5, &l)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st
}

func TestPoolStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := newTestStore(t, dir)
	pool := st.Pool()

	t.Run("add, contains, remove round trip", func(t *testing.T) {
		if err := pool.Add(ctx, nil, "AAAA-BBBB-CCCC"); err != nil {
			t.Fatalf("add: %v", err)
		}
		ok, err := pool.Contains(ctx, nil, "AAAA-BBBB-CCCC")
		if err != nil || !ok {
			t.Fatalf("contains = %v, %v; want true", ok, err)
		}
		removed, err := pool.Remove(ctx, nil, "AAAA-BBBB-CCCC")
		if err != nil || !removed {
			t.Fatalf("remove = %v, %v; want true", removed, err)
		}
		removed, err = pool.Remove(ctx, nil, "AAAA-BBBB-CCCC")
		if err != nil || removed {
			t.Fatalf("second remove = %v, %v; want false", removed, err)
		}
	})

	t.Run("state survives a new store instance", func(t *testing.T) {
		if err := pool.Add(ctx, nil, "DDDD-EEEE-FFFF"); err != nil {
			t.Fatalf("add: %v", err)
		}
		reopened := newTestStore(t, dir)
		ok, err := reopened.Pool().Contains(ctx, nil, "DDDD-EEEE-FFFF")
		if err != nil || !ok {
			t.Fatalf("contains after reopen = %v, %v; want true", ok, err)
		}
	})

	t.Run("externally provisioned codes are picked up without restart", func(t *testing.T) {
		// Simulate outside tooling rewriting codes.json directly.
		if err := os.WriteFile(filepath.Join(dir, poolFile), []byte(`["EXTERNAL-CODE"]`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		ok, err := pool.Contains(ctx, nil, "EXTERNAL-CODE")
		if err != nil || !ok {
			t.Fatalf("contains = %v, %v; want true", ok, err)
		}
	})

	t.Run("malformed pool file degrades to empty", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, poolFile), []byte(`{not json`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		ok, err := pool.Contains(ctx, nil, "ANYTHING")
		if err != nil {
			t.Fatalf("contains: %v", err)
		}
		if ok {
			t.Error("corrupt pool should read as empty")
		}
	})
}

func TestLedgerStore(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, t.TempDir())
	ledger := st.Ledger()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	entry := &model.LedgerEntry{Code: "AAAA-BBBB-CCCC", OwnerID: "u1", ActivatedAt: t0, Status: model.LedgerStatusActive}

	t.Run("insert then find", func(t *testing.T) {
		if err := ledger.Insert(ctx, nil, entry); err != nil {
			t.Fatalf("insert: %v", err)
		}
		got, err := ledger.Find(ctx, nil, entry.Code)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.OwnerID != "u1" || got.Status != model.LedgerStatusActive || !got.ActivatedAt.Equal(t0) {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})

	t.Run("duplicate insert is a primary key violation", func(t *testing.T) {
		err := ledger.Insert(ctx, nil, &model.LedgerEntry{Code: entry.Code, OwnerID: "u2", ActivatedAt: t0, Status: model.LedgerStatusActive})
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got: %v", err)
		}
		got, _ := ledger.Find(ctx, nil, entry.Code)
		if got.OwnerID != "u1" {
			t.Error("duplicate insert overwrote the original owner")
		}
	})

	t.Run("mark expired is one-way and idempotent", func(t *testing.T) {
		if err := ledger.MarkExpired(ctx, nil, entry.Code); err != nil {
			t.Fatalf("mark expired: %v", err)
		}
		got, _ := ledger.Find(ctx, nil, entry.Code)
		if got.Status != model.LedgerStatusExpired {
			t.Fatalf("status = %q, want expired", got.Status)
		}
		if err := ledger.MarkExpired(ctx, nil, entry.Code); err != nil {
			t.Fatalf("second mark expired: %v", err)
		}
		if err := ledger.MarkExpired(ctx, nil, "missing"); err != nil {
			t.Fatalf("mark expired on absent code: %v", err)
		}
	})

	t.Run("list active excludes expired entries", func(t *testing.T) {
		live := &model.LedgerEntry{Code: "DDDD-EEEE-FFFF", OwnerID: "u2", ActivatedAt: t0, Status: model.LedgerStatusActive}
		if err := ledger.Insert(ctx, nil, live); err != nil {
			t.Fatalf("insert: %v", err)
		}
		active, err := ledger.ListActive(ctx, nil)
		if err != nil {
			t.Fatalf("list active: %v", err)
		}
		if len(active) != 1 || active[0].Code != live.Code {
			t.Errorf("unexpected active set: %+v", active)
		}
	})
}

func TestAuditStore(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, t.TempDir()) // cap of 5
	audit := st.Audit()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 8; i++ {
		rec := &model.AuditRecord{
			ID:        ulid.Make().String(),
			CreatedAt: t0.Add(time.Duration(i) * time.Second),
			Identity:  "u1",
			Code:      fmt.Sprintf("code-%d", i),
			Outcome:   model.OutcomeUnknown,
			Detail:    model.OutcomeUnknown.Detail(),
		}
		if err := audit.Append(ctx, nil, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := audit.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("retention cap not enforced: got %d records", len(records))
	}
	// Most recent first; the three oldest were evicted.
	if records[0].Code != "code-7" || records[4].Code != "code-3" {
		t.Errorf("wrong window: first=%q last=%q", records[0].Code, records[4].Code)
	}

	limited, err := audit.List(ctx, nil, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].Code != "code-7" {
		t.Errorf("limit not applied: %+v", limited)
	}
}

func TestStoreWithTx(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, t.TempDir())
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := st.Pool().Add(ctx, nil, "AAAA-BBBB-CCCC"); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	t.Run("commit persists pool removal and ledger insert together", func(t *testing.T) {
		err := st.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := st.Pool().Remove(ctx, tx, "AAAA-BBBB-CCCC"); err != nil {
				return err
			}
			return st.Ledger().Insert(ctx, tx, &model.LedgerEntry{
				Code: "AAAA-BBBB-CCCC", OwnerID: "u1", ActivatedAt: t0, Status: model.LedgerStatusActive,
			})
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}

		ok, _ := st.Pool().Contains(ctx, nil, "AAAA-BBBB-CCCC")
		if ok {
			t.Error("pool removal not committed")
		}
		if _, err := st.Ledger().Find(ctx, nil, "AAAA-BBBB-CCCC"); err != nil {
			t.Errorf("ledger insert not committed: %v", err)
		}
	})

	t.Run("failed ledger write leaves the code in the pool", func(t *testing.T) {
		dir := t.TempDir()
		blocked := newTestStore(t, dir)
		if err := blocked.Pool().Add(ctx, nil, "GGGG-HHHH-JJJJ"); err != nil {
			t.Fatalf("seed pool: %v", err)
		}
		// A non-empty directory in the temp file's place makes the ledger
		// write fail while reads keep working.
		if err := os.MkdirAll(filepath.Join(dir, ledgerFile+".tmp", "x"), 0o755); err != nil {
			t.Fatalf("block ledger: %v", err)
		}

		err := blocked.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := blocked.Pool().Remove(ctx, tx, "GGGG-HHHH-JJJJ"); err != nil {
				return err
			}
			return blocked.Ledger().Insert(ctx, tx, &model.LedgerEntry{
				Code: "GGGG-HHHH-JJJJ", OwnerID: "u1", ActivatedAt: t0, Status: model.LedgerStatusActive,
			})
		})
		if err == nil {
			t.Fatal("expected the commit to fail")
		}

		ok, err := blocked.Pool().Contains(ctx, nil, "GGGG-HHHH-JJJJ")
		if err != nil || !ok {
			t.Errorf("code gone from pool after failed commit: %v %v", ok, err)
		}
		if _, err := blocked.Ledger().Find(ctx, nil, "GGGG-HHHH-JJJJ"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("partial ledger write reached disk: %v", err)
		}
	})

	t.Run("failed pool write keeps the code reachable via the ledger", func(t *testing.T) {
		dir := t.TempDir()
		blocked := newTestStore(t, dir)
		if err := blocked.Pool().Add(ctx, nil, "KKKK-LLLL-MMMM"); err != nil {
			t.Fatalf("seed pool: %v", err)
		}
		if err := os.MkdirAll(filepath.Join(dir, poolFile+".tmp", "x"), 0o755); err != nil {
			t.Fatalf("block pool: %v", err)
		}

		err := blocked.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := blocked.Pool().Remove(ctx, tx, "KKKK-LLLL-MMMM"); err != nil {
				return err
			}
			return blocked.Ledger().Insert(ctx, tx, &model.LedgerEntry{
				Code: "KKKK-LLLL-MMMM", OwnerID: "u1", ActivatedAt: t0, Status: model.LedgerStatusActive,
			})
		})
		if err == nil {
			t.Fatal("expected the commit to fail")
		}

		// The ledger entry committed before the pool write failed, so the
		// owner keeps a valid activation; ledger-first precedence hides the
		// leftover pool membership.
		got, err := blocked.Ledger().Find(ctx, nil, "KKKK-LLLL-MMMM")
		if err != nil {
			t.Fatalf("code unreachable after failed pool write: %v", err)
		}
		if got.OwnerID != "u1" || got.Status != model.LedgerStatusActive {
			t.Errorf("unexpected ledger entry: %+v", got)
		}
	})

	t.Run("error discards every staged mutation", func(t *testing.T) {
		if err := st.Pool().Add(ctx, nil, "DDDD-EEEE-FFFF"); err != nil {
			t.Fatalf("seed pool: %v", err)
		}
		boom := errors.New("boom")
		err := st.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := st.Pool().Remove(ctx, tx, "DDDD-EEEE-FFFF"); err != nil {
				return err
			}
			if err := st.Ledger().Insert(ctx, tx, &model.LedgerEntry{
				Code: "DDDD-EEEE-FFFF", OwnerID: "u1", ActivatedAt: t0, Status: model.LedgerStatusActive,
			}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got: %v", err)
		}

		ok, _ := st.Pool().Contains(ctx, nil, "DDDD-EEEE-FFFF")
		if !ok {
			t.Error("rolled-back pool removal reached disk")
		}
		if _, err := st.Ledger().Find(ctx, nil, "DDDD-EEEE-FFFF"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("rolled-back ledger insert reached disk: %v", err)
		}
	})
}
