package memory

import (
	"context"
	"sync"
	"time"

	"pharmacy-guard-backend/internal/domain"
)

type latchEntry struct {
	state     domain.LatchState
	expiresAt time.Time
}

// LatchRepository keeps guard latches in process memory. It is the fallback
// when Redis is not configured or not reachable.
type LatchRepository struct {
	mu      sync.Mutex
	entries map[string]latchEntry
	now     func() time.Time
}

func NewLatchRepository() *LatchRepository {
	return &LatchRepository{entries: make(map[string]latchEntry), now: time.Now}
}

// StartJanitor removes expired latches every interval until ctx is done.
func (r *LatchRepository) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *LatchRepository) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, entry := range r.entries {
		if now.After(entry.expiresAt) {
			delete(r.entries, id)
		}
	}
}

// load returns the live latch of mountID. Callers hold mu.
func (r *LatchRepository) load(mountID string) (*domain.LatchState, time.Time) {
	entry, ok := r.entries[mountID]
	if !ok {
		return nil, time.Time{}
	}
	if r.now().After(entry.expiresAt) {
		delete(r.entries, mountID)
		return nil, time.Time{}
	}
	st := entry.state
	return &st, entry.expiresAt
}

func (r *LatchRepository) Get(_ context.Context, mountID string) (*domain.LatchState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, _ := r.load(mountID)
	return st, nil
}

// TTL returns how long the latch of mountID has left, or 0 when there is none.
func (r *LatchRepository) TTL(_ context.Context, mountID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, expiresAt := r.load(mountID)
	if st == nil {
		return 0
	}
	return expiresAt.Sub(r.now())
}

func (r *LatchRepository) CompareAndSwap(_ context.Context, mountID string, old, next *domain.LatchState, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, _ := r.load(mountID)
	if !domain.SameLatch(cur, old) {
		return false, nil
	}
	r.entries[mountID] = latchEntry{state: *next, expiresAt: r.now().Add(ttl)}
	return true, nil
}

func (r *LatchRepository) Clear(_ context.Context, mountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, mountID)
	return nil
}
