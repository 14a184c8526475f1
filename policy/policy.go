// Package policy implements the approximate-LRU eviction policy: an
// intrusive doubly-linked list ordered from least to most recently used,
// with a bounded lock-free buffer absorbing Touch calls so that reads
// on a hot entry don't all fight over the list mutex.
//
// Touch is the hot path. It only takes the list mutex when the touched
// buffer is full; otherwise it's a couple of atomic operations and a store,
// and a repeat touch of a node already queued is a single failed CAS.
// Attach, Evict, and Detach always take the mutex — they're comparatively
// rare and need a consistent list.
package policy

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jaiminpan/vmemcache/internal/budget"
)

// Options configures a new Policy.
type Options struct {
	// NodeBudget caps the number of nodes Attach may allocate. Zero (the
	// default) means unbounded.
	NodeBudget int64

	// TouchedCapacity bounds the lock-free touched buffer. Zero selects
	// the default of 256.
	TouchedCapacity int32

	// Logger receives the diagnostic record emitted if Touch ever
	// observes its own just-claimed slot change out from under it — an
	// invariant violation the policy cannot recover from. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

const defaultTouchedCapacity = 256

// Policy is an approximate-LRU replacement policy over nodes holding
// values of type V. The zero value is not usable; construct with New.
type Policy[V any] struct {
	mu sync.Mutex

	// head is the least recently used end, tail the most recently used.
	head, tail *Node[V]

	touched    []*Node[V]
	touchedCap int32
	touchedN   int32 // fetch-and-incremented by reserving Touch calls

	alloc  *budget.Counter
	logger *slog.Logger
}

// New creates an empty Policy.
func New[V any](opts Options) *Policy[V] {
	cap := opts.TouchedCapacity
	if cap <= 0 {
		cap = defaultTouchedCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy[V]{
		touched:    make([]*Node[V], cap),
		touchedCap: cap,
		alloc:      budget.New(opts.NodeBudget),
		logger:     logger,
	}
}

// Attach allocates a node for data and links it at the most recently
// used end of the list, returning a handle the caller must keep to pass
// to Touch, Evict, and Detach.
func (p *Policy[V]) Attach(data V) (Handle[V], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.alloc.Reserve(1) {
		return nil, ErrOutOfMemory
	}
	n := &Node[V]{data: data}
	p.linkAtTailLocked(n)
	return n, nil
}

// Touch records that h was used, biasing the policy toward keeping it.
// It is safe to call concurrently with itself and with Evict/Detach on
// other handles. It does not take the list mutex unless the touched
// buffer needs draining; if this node already has a touch reserved or
// pending, it returns at once.
func (p *Policy[V]) Touch(h Handle[V]) {
	n := (*Node[V])(h)
	if n == nil {
		return
	}

	if !atomic.CompareAndSwapInt32(&n.wasUsed, stateIdle, stateReserving) {
		// Another goroutine already owns moving this node; nothing for
		// this call to do.
		return
	}

	i := atomic.AddInt32(&p.touchedN, 1) - 1
	if i >= p.touchedCap {
		// Buffer is full (or was, concurrently): fall back to draining it
		// under the mutex, then finish this node's own move there too.
		p.mu.Lock()
		p.drainLocked()
		if n.live {
			p.moveToTailLocked(n)
		}
		n.wasUsed = stateIdle
		p.mu.Unlock()
		return
	}

	p.touched[i] = n

	if !atomic.CompareAndSwapInt32(&n.wasUsed, stateReserving, statePending) {
		// Only this goroutine can have set Reserving, and only this
		// goroutine transitions away from it; a changed value here means
		// the tri-state invariant itself broke.
		p.logger.Error("policy: touch state invariant violated", "state", atomic.LoadInt32(&n.wasUsed))
		panic("vmemcache/policy: touch state invariant violated")
	}
}

// Evict removes and returns the value at the least recently used end of
// the list, or the zero value and false if the policy holds no nodes.
func (p *Policy[V]) Evict() (V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.drainLocked()

	n := p.head
	if n == nil {
		var zero V
		return zero, false
	}
	p.unlinkLocked(n)
	p.alloc.Release(1)
	return n.data, true
}

// Detach removes h from the policy before it would naturally be
// evicted — used when the caller deletes an entry directly. Touching a
// detached handle afterward is safe: the node is never relinked into the
// list.
func (p *Policy[V]) Detach(h Handle[V]) {
	n := (*Node[V])(h)
	if n == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlinkLocked(n)
	p.alloc.Release(1)
}

// drainLocked moves every still-live node queued in the touched buffer to
// the tail, in the order they were queued, and resets the buffer. Callers must
// hold p.mu.
func (p *Policy[V]) drainLocked() {
	n := atomic.SwapInt32(&p.touchedN, 0)
	if n > p.touchedCap {
		n = p.touchedCap
	}
	for i := int32(0); i < n; i++ {
		node := p.touched[i]
		p.touched[i] = nil
		if node == nil {
			continue
		}
		if node.live {
			p.moveToTailLocked(node)
		}
		atomic.StoreInt32(&node.wasUsed, stateIdle)
	}
}

// moveToTailLocked relinks n at the most recently used end. Callers must
// hold p.mu.
func (p *Policy[V]) moveToTailLocked(n *Node[V]) {
	if p.tail == n {
		return
	}
	p.unlinkLocked(n)
	p.linkAtTailLocked(n)
}

// unlinkLocked removes n from the list without deallocating it. Callers
// must hold p.mu.
func (p *Policy[V]) unlinkLocked(n *Node[V]) {
	n.live = false
	if n.prev != nil {
		n.prev.next = n.next
	} else if p.head == n {
		p.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if p.tail == n {
		p.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// linkAtTailLocked appends n as the new most recently used node. Callers
// must hold p.mu.
func (p *Policy[V]) linkAtTailLocked(n *Node[V]) {
	n.live = true
	n.prev, n.next = p.tail, nil
	if p.tail != nil {
		p.tail.next = n
	} else {
		p.head = n
	}
	p.tail = n
}
