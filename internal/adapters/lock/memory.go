package lock

import (
	"context"
	"sync"
	"time"

	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// MemoryLocker implements ports.Locker for single-process deployments and tests.
// An expired lease can be taken over; the stale release is then ignored.
type MemoryLocker struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]memoryLease
	seq   uint64
}

type memoryLease struct {
	token     uint64
	expiresAt time.Time
}

var _ ports.Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an empty in-memory locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		now:   time.Now,
		locks: make(map[string]memoryLease),
	}
}

// TryAcquire takes key unless a live lease holds it
func (l *MemoryLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, held := l.locks[key]; held && (lease.expiresAt.IsZero() || now.Before(lease.expiresAt)) {
		return nil, false, nil
	}

	l.seq++
	lease := memoryLease{token: l.seq}
	if ttl > 0 {
		lease.expiresAt = now.Add(ttl)
	}
	l.locks[key] = lease

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if current, ok := l.locks[key]; ok && current.token == lease.token {
				delete(l.locks, key)
			}
		})
	}
	return release, true, nil
}
