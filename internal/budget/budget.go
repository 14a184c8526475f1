// Package budget tracks allocation usage against an optional ceiling.
//
// It stands in for the arena/allocator the spec treats as an external
// collaborator: Go doesn't surface allocation failure the way a C arena
// does, so the index and policy packages each count node allocations
// against a configured budget in order to give their documented
// out-of-memory return paths something real to exercise.
package budget

import "sync"

// Counter tracks usage against Limit. The zero value is unbounded: Reserve
// always succeeds. Safe for concurrent use; a nil *Counter behaves as an
// unbounded counter too, so callers may leave it unset.
type Counter struct {
	mu    sync.Mutex
	Limit int64
	inUse int64
}

// New creates a Counter with the given limit. limit <= 0 means unbounded.
func New(limit int64) *Counter {
	return &Counter{Limit: limit}
}

// Reserve attempts to account for n additional units of usage. It reports
// whether the reservation succeeded; on failure, usage is left unchanged.
func (c *Counter) Reserve(n int64) bool {
	if c == nil || c.Limit <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inUse+n > c.Limit {
		return false
	}
	c.inUse += n
	return true
}

// Release gives back n units of usage previously reserved.
func (c *Counter) Release(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inUse -= n
	if c.inUse < 0 {
		c.inUse = 0
	}
}

// InUse returns the current usage.
func (c *Counter) InUse() int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}
