// File: internal/usecase/admin_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/domain/ports/adapter"
	"code-verification-service/internal/domain/ports/repository"
	"code-verification-service/internal/infra/logging"
)

// ActiveCode is the admin view of a live ledger entry.
type ActiveCode struct {
	Code        string
	OwnerID     string
	ActivatedAt time.Time
	Remaining   time.Duration
}

// AdminUseCase serves the shared-secret read endpoints: recent audit records
// and currently active codes. It never mutates state; expiry shown here is
// computed from the clock, the actual status flip happens lazily on verify.
type AdminUseCase struct {
	ledger       repository.LedgerRepository
	audit        repository.AuditLogRepository
	clock        adapter.Clock
	window       time.Duration
	displayLimit int
	log          *zerolog.Logger
}

func NewAdminUseCase(
	ledger repository.LedgerRepository,
	audit repository.AuditLogRepository,
	clock adapter.Clock,
	window time.Duration,
	displayLimit int,
	logger *zerolog.Logger,
) *AdminUseCase {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if displayLimit <= 0 {
		displayLimit = 30
	}
	return &AdminUseCase{
		ledger:       ledger,
		audit:        audit,
		clock:        clock,
		window:       window,
		displayLimit: displayLimit,
		log:          logger,
	}
}

// RecentLogs returns up to the display limit of audit records, most recent
// first. Each call re-queries current state.
func (uc *AdminUseCase) RecentLogs(ctx context.Context) ([]*model.AuditRecord, error) {
	defer logging.TraceDuration(uc.log, "AdminUseCase.RecentLogs")()

	records, err := uc.audit.List(ctx, nil, uc.displayLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit records: %v", domain.ErrStoreUnavailable, err)
	}
	return records, nil
}

// ActiveCodes returns every ledger entry that is still active and has
// validity time left.
func (uc *AdminUseCase) ActiveCodes(ctx context.Context) ([]*ActiveCode, error) {
	defer logging.TraceDuration(uc.log, "AdminUseCase.ActiveCodes")()

	entries, err := uc.ledger.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list active entries: %v", domain.ErrStoreUnavailable, err)
	}

	now := uc.clock.Now()
	out := make([]*ActiveCode, 0, len(entries))
	for _, e := range entries {
		remaining := e.Remaining(now, uc.window)
		if remaining <= 0 {
			continue
		}
		out = append(out, &ActiveCode{
			Code:        e.Code,
			OwnerID:     e.OwnerID,
			ActivatedAt: e.ActivatedAt,
			Remaining:   remaining,
		})
	}
	return out, nil
}
