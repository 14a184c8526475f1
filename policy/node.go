package policy

// Tri-state values for Node.wasUsed. A node moves Idle -> Reserving ->
// Pending across one Touch call; Pending means a slot in the touched
// buffer has been durably claimed for this node and Drain will move it.
// Idle means no such claim is outstanding, so the next Touch is free to
// start one.
const (
	stateIdle      int32 = 0
	stateReserving int32 = 1
	statePending   int32 = 2
)

// Handle is an opaque reference to a node's place in the policy, handed
// back by Attach and passed to Touch, Evict, and Detach. Callers store it
// alongside their cache entry; the policy never interprets its bits.
type Handle[V any] *Node[V]

// Node is one entry in the eviction list. It carries the caller's data
// payload plus the intrusive doubly-linked list pointers and the
// lock-free touch bookkeeping described by the policy's design.
type Node[V any] struct {
	data V

	prev, next *Node[V]

	// wasUsed is the tri-state flag (stateIdle/stateReserving/statePending)
	// that lets Touch decide, without taking the list mutex, whether this
	// node already has a move-to-tail pending.
	wasUsed int32

	// live is false once Evict or Detach has removed n from the list. A
	// node can still sit in the touched buffer's pending slots after
	// that — drainLocked checks live before relinking it, so a Touch
	// racing with a Detach never resurrects a removed node.
	live bool
}

// Data returns the payload stored in n at Attach time.
func (n *Node[V]) Data() V {
	return n.data
}
