package punish

import (
	"context"
	"sync"

	"github.com/PancyStudios/PancyMod/pkg/metrics"
)

type lockKey struct {
	guildID string
	userID  string
}

// lockEntry is a binary semaphore plus the number of goroutines holding or
// waiting on it. The entry is removed from the registry when refs drops to 0.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// LockRegistry serializes work per (guild, target). Entries are created on
// first use and deleted on release so the map only holds open flows.
type LockRegistry struct {
	mu      sync.Mutex
	entries map[lockKey]*lockEntry
	metrics *metrics.Metrics
}

// NewLockRegistry creates an empty registry. m may be nil.
func NewLockRegistry(m *metrics.Metrics) *LockRegistry {
	return &LockRegistry{
		entries: make(map[lockKey]*lockEntry),
		metrics: m,
	}
}

// TryAcquire locks the key or fails with ErrFlowInProgress. A failed attempt
// leaves the registry untouched.
func (r *LockRegistry) TryAcquire(guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := lockKey{guildID, userID}
	if _, ok := r.entries[k]; ok {
		r.metrics.Contention()
		return ErrFlowInProgress
	}

	e := &lockEntry{sem: make(chan struct{}, 1), refs: 1}
	e.sem <- struct{}{}
	r.entries[k] = e
	r.metrics.SetLocksHeld(len(r.entries))
	return nil
}

// Acquire waits until the key is free, then locks it. Get-or-create and the
// reference count update happen under the registry mutex, so concurrent
// callers always share one entry.
func (r *LockRegistry) Acquire(ctx context.Context, guildID, userID string) error {
	k := lockKey{guildID, userID}

	r.mu.Lock()
	e, ok := r.entries[k]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		r.entries[k] = e
	} else {
		r.metrics.Contention()
	}
	e.refs++
	r.metrics.SetLocksHeld(len(r.entries))
	r.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		r.drop(k, e)
		r.mu.Unlock()
		return ctx.Err()
	}
}

// Release unlocks the key and forgets it once nobody else waits on it.
// Releasing a key that is not locked returns ErrLockNotHeld.
func (r *LockRegistry) Release(guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := lockKey{guildID, userID}
	e, ok := r.entries[k]
	if !ok {
		return ErrLockNotHeld
	}

	select {
	case <-e.sem:
	default:
		return ErrLockNotHeld
	}
	r.drop(k, e)
	return nil
}

// drop must be called with r.mu held
func (r *LockRegistry) drop(k lockKey, e *lockEntry) {
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, k)
	}
	r.metrics.SetLocksHeld(len(r.entries))
}

// IsLocked reports whether a flow holds, or is about to hold, the key
func (r *LockRegistry) IsLocked(guildID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[lockKey{guildID, userID}]
	return ok
}

// Len returns the number of live entries
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
