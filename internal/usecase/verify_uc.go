// File: internal/usecase/verify_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/adapter"
	"code-verification-service/internal/domain/ports/repository"
	"code-verification-service/internal/infra/logging"
)

// codeLockTTL bounds how long a crashed holder can keep a code locked.
const codeLockTTL = 5 * time.Second

// VerifyUseCase is the verification engine. Given a (code, identity) pair it
// decides which of first-use / still-valid / owned-by-other / expired applies
// and performs the corresponding state transition exactly once per code.
//
// Decision precedence (history overrides pool membership):
//  1. ledger entry expired            -> permanently_expired, no mutation
//  2. ledger entry owned by other     -> owned_by_other, no mutation
//  3. ledger entry owned, window over -> flip to expired, deny
//  4. ledger entry owned, in window   -> still_valid, no mutation
//  5. no entry, not in pool           -> unknown, no mutation
//  6. no entry, in pool               -> remove from pool, insert entry, accept
//
// Steps 3 and 6 run under a per-code lock and inside one transaction; the
// ledger's primary key on code is the backstop for two concurrent first uses:
// the loser's insert fails with ErrAlreadyExists and the read path is re-run
// against the winner's committed entry.
type VerifyUseCase struct {
	ledger repository.LedgerRepository
	pool   repository.PoolRepository
	audit  repository.AuditLogRepository
	tm     repository.TransactionManager
	locker adapter.Locker
	clock  adapter.Clock
	window time.Duration
	log    *zerolog.Logger
}

func NewVerifyUseCase(
	ledger repository.LedgerRepository,
	pool repository.PoolRepository,
	audit repository.AuditLogRepository,
	tm repository.TransactionManager,
	locker adapter.Locker,
	clock adapter.Clock,
	window time.Duration,
	logger *zerolog.Logger,
) *VerifyUseCase {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &VerifyUseCase{
		ledger: ledger,
		pool:   pool,
		audit:  audit,
		tm:     tm,
		locker: locker,
		clock:  clock,
		window: window,
		log:    logger,
	}
}

// Verify runs one verification attempt. A non-nil error means an internal
// store failure; every other conclusion is expressed through the verdict.
// Exactly one audit record is written per call, whatever the path taken.
func (uc *VerifyUseCase) Verify(ctx context.Context, code, identity string) (*model.Verdict, error) {
	defer logging.TraceDuration(uc.log, "VerifyUseCase.Verify")()

	// Absent values never satisfy equality checks, so an empty identity can
	// neither own nor come to own a code. Deny without touching any store.
	if code == "" || identity == "" {
		return uc.conclude(ctx, code, identity, &model.Verdict{Outcome: model.OutcomeUnknown}), nil
	}

	token, err := uc.locker.TryLock(ctx, lockKey(code), codeLockTTL)
	if err != nil {
		return uc.fail(ctx, code, identity, fmt.Errorf("acquire code lock: %w", err))
	}
	defer func() {
		if uerr := uc.locker.Unlock(ctx, lockKey(code), token); uerr != nil {
			uc.log.Warn().Err(uerr).Str("code", code).Msg("release code lock")
		}
	}()

	verdict, err := uc.verifyTx(ctx, code, identity)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost the first-use race to a concurrent activation that committed
		// between our ledger read and insert. Re-evaluate: the read path now
		// finds the winner's entry.
		verdict, err = uc.verifyTx(ctx, code, identity)
	}
	if err != nil {
		return uc.fail(ctx, code, identity, err)
	}
	return uc.conclude(ctx, code, identity, verdict), nil
}

// verifyTx runs the decision procedure inside one atomic unit of work so no
// caller can observe a verdict inconsistent with persisted state.
func (uc *VerifyUseCase) verifyTx(ctx context.Context, code, identity string) (*model.Verdict, error) {
	var verdict *model.Verdict
	err := uc.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := uc.decide(ctx, tx, code, identity)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

func (uc *VerifyUseCase) decide(ctx context.Context, tx repository.Tx, code, identity string) (*model.Verdict, error) {
	now := uc.clock.Now()

	entry, err := uc.ledger.Find(ctx, tx, code)
	switch {
	case err == nil:
		return uc.decideRedeemed(ctx, tx, entry, identity, now)
	case errors.Is(err, domain.ErrNotFound):
		return uc.decideUnredeemed(ctx, tx, code, identity, now)
	default:
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
}

func (uc *VerifyUseCase) decideRedeemed(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry, identity string, now time.Time) (*model.Verdict, error) {
	if entry.Status == model.LedgerStatusExpired {
		return &model.Verdict{Outcome: model.OutcomePermanentlyExpired, Entry: entry}, nil
	}
	if !entry.OwnedBy(identity) {
		return &model.Verdict{Outcome: model.OutcomeOwnedByOther, Entry: entry}, nil
	}
	if entry.Expired(now, uc.window) {
		if err := uc.ledger.MarkExpired(ctx, tx, entry.Code); err != nil {
			return nil, fmt.Errorf("mark expired: %w", err)
		}
		entry.Status = model.LedgerStatusExpired
		return &model.Verdict{Outcome: model.OutcomeExpired, Entry: entry}, nil
	}
	return &model.Verdict{Outcome: model.OutcomeStillValid, Entry: entry}, nil
}

func (uc *VerifyUseCase) decideUnredeemed(ctx context.Context, tx repository.Tx, code, identity string, now time.Time) (*model.Verdict, error) {
	ok, err := uc.pool.Contains(ctx, tx, code)
	if err != nil {
		return nil, fmt.Errorf("pool lookup: %w", err)
	}
	if !ok {
		return &model.Verdict{Outcome: model.OutcomeUnknown}, nil
	}

	if _, err := uc.pool.Remove(ctx, tx, code); err != nil {
		return nil, fmt.Errorf("pool remove: %w", err)
	}
	entry := &model.LedgerEntry{
		Code:        code,
		OwnerID:     identity,
		ActivatedAt: now,
		Status:      model.LedgerStatusActive,
	}
	if err := uc.ledger.Insert(ctx, tx, entry); err != nil {
		// ErrAlreadyExists propagates unwrapped so Verify can re-run the
		// read path against the winning activation.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("ledger insert: %w", err)
	}
	return &model.Verdict{Outcome: model.OutcomeFirstUse, Entry: entry}, nil
}

// conclude writes the audit record for a decided verdict. Audit writes are
// best-effort: a failed append is logged but never alters the verdict
// already committed.
func (uc *VerifyUseCase) conclude(ctx context.Context, code, identity string, verdict *model.Verdict) *model.Verdict {
	uc.appendAudit(ctx, code, identity, verdict.Outcome)
	return verdict
}

// fail maps a store-layer failure to the internal-error verdict. Full detail
// stays server-side; callers surface a generic message.
func (uc *VerifyUseCase) fail(ctx context.Context, code, identity string, err error) (*model.Verdict, error) {
	logging.With(ctx, uc.log).Error().Err(err).Str("code", code).Str("identity", identity).Msg("verification failed")
	uc.appendAudit(ctx, code, identity, model.OutcomeInternalError)
	return &model.Verdict{Outcome: model.OutcomeInternalError}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (uc *VerifyUseCase) appendAudit(ctx context.Context, code, identity string, outcome model.Outcome) {
	record := &model.AuditRecord{
		ID:        ulid.Make().String(),
		CreatedAt: uc.clock.Now(),
		Identity:  identity,
		Code:      code,
		Outcome:   outcome,
		Detail:    outcome.Detail(),
	}
	if err := uc.audit.Append(ctx, nil, record); err != nil {
		uc.log.Warn().Err(err).Str("code", code).Str("outcome", string(outcome)).Msg("audit append dropped")
	}
}

func lockKey(code string) string {
	return "verify:code:" + code
}
