package memory

import "sync"

// Locker hands out per-agent exclusive locks. Abstracted so the in-process
// registry can be swapped for a distributed lock without touching call
// sites.
type Locker interface {
	// Acquire blocks until the agent's lock is held and returns the
	// release function. The caller must invoke release exactly once.
	Acquire(agent string) (release func())
}

// lockRegistry is the in-process Locker: one mutex per agent id, created
// lazily and never discarded (the agent population is small and fixed).
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry returns an in-process Locker keyed by agent id.
func NewLockRegistry() Locker {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *lockRegistry) Acquire(agent string) func() {
	r.mu.Lock()
	lock, ok := r.locks[agent]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[agent] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
