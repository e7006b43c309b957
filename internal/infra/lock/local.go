// File: internal/infra/lock/local.go
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*LocalLocker)(nil)

// LocalLocker is the in-process Locker used when no Redis is configured.
// Tokens guard against a release by anyone but the holder.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]string // key -> holder token
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]string)}
}

// TryLock polls until the key frees up, the wait budget runs out, or ctx is
// cancelled. ttl doubles as the wait budget; local locks never leak because
// Unlock runs in the same process.
func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(ttl)
	for {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			l.held[key] = token
			l.mu.Unlock()
			return token, nil
		}
		l.mu.Unlock()

		if time.Now().After(deadline) {
			return "", domain.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (l *LocalLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return domain.ErrInvalidArgument
	}
	delete(l.held, key)
	return nil
}
