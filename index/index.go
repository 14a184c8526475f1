// Package index implements the concurrent radix index described by the
// cache's design: a content-addressable key→value map over arbitrary
// length binary keys, built as a path-compressed radix trie with 16-way
// fan-out over 4-bit nibbles.
//
// Keys must already be length-prefixed by the caller (a ksize header
// followed by ksize bytes of key material, treated by this package as one
// opaque binary string) so that no key is ever a byte-prefix of another —
// the index does not support that case and does not check for it.
//
// Every public method takes the index's single mutex for its entire
// duration; there is no lock-free read path.
package index

import (
	"bytes"
	"sync"

	"github.com/jaiminpan/vmemcache/internal/budget"
)

// Options configures a new Index.
type Options struct {
	// NodeBudget caps the number of internal and leaf nodes the index may
	// allocate. Zero (the default) means unbounded.
	NodeBudget int64
}

// Index is a concurrent, path-compressed radix trie over opaque binary
// keys, generic over the stored value type V. A leaf's value is a *V
// supplied by the caller on Insert; the index never dereferences it.
type Index[V any] struct {
	mu    sync.Mutex
	root  node[V]
	alloc *budget.Counter
}

// New creates an empty index.
func New[V any](opts Options) *Index[V] {
	return &Index[V]{alloc: budget.New(opts.NodeBudget)}
}

// Insert adds value under key. key must already be the caller's
// length-prefixed opaque key; the index treats it as an opaque binary
// string and does not interpret it.
//
// Insert returns ErrKeyExists if a leaf with byte-identical key bytes is
// already present — the index is not modified, and the caller decides
// whether to replace. It returns ErrOutOfMemory if the configured node
// budget would be exceeded; the index is left exactly as it was.
func (ix *Index[V]) Insert(key []byte, value *V) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.root == nil {
		if !ix.alloc.Reserve(1) {
			return ErrOutOfMemory
		}
		ix.root = &leaf[V]{key: key, value: value}
		return nil
	}

	// First descent: find any representative leaf to diff against.
	rep := firstDescentLeaf[V](ix.root, key)

	diffByte, ok := firstDiffByte(key, rep.key)
	if !ok {
		// The keys agree over their whole common length: identical, or
		// one is a byte-prefix of the other. Well-formed, length-prefixed
		// callers only hit the identical case.
		return ErrKeyExists
	}
	bitOff := nibbleShift(key[diffByte] ^ rep.key[diffByte])

	// Second descent: find where the new leaf (or a new branch node) goes.
	curSlot := &ix.root
	for {
		inner, isInner := (*curSlot).(*innerNode[V])
		if !isInner || stopsBefore(inner.byteOff, inner.bitOff, diffByte, bitOff) {
			break
		}
		curSlot = &inner.children[sliceIndex(key[inner.byteOff], inner.bitOff)]
	}

	if *curSlot == nil {
		if !ix.alloc.Reserve(1) {
			return ErrOutOfMemory
		}
		*curSlot = &leaf[V]{key: key, value: value}
		return nil
	}

	if !ix.alloc.Reserve(2) {
		return ErrOutOfMemory
	}
	split := &innerNode[V]{byteOff: diffByte, bitOff: bitOff}
	split.children[sliceIndex(rep.key[diffByte], bitOff)] = *curSlot
	split.children[sliceIndex(key[diffByte], bitOff)] = &leaf[V]{key: key, value: value}
	*curSlot = split
	return nil
}

// Lookup returns the value stored under key, or (nil, false) if absent.
func (ix *Index[V]) Lookup(key []byte) (*V, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	n := ix.root
	for {
		switch t := n.(type) {
		case nil:
			return nil, false
		case *leaf[V]:
			if bytes.Equal(t.key, key) {
				return t.value, true
			}
			return nil, false
		case *innerNode[V]:
			if int(t.byteOff) >= len(key) {
				// Key too short to reach any leaf below this node.
				return nil, false
			}
			n = t.children[sliceIndex(key[t.byteOff], t.bitOff)]
		}
	}
}

// Remove detaches the leaf for key, if present, and returns its value.
// The parent node is collapsed into its one remaining child (edge
// shortening) if the removal would otherwise leave it with fewer than two
// children. Remove never shortens past the root.
func (ix *Index[V]) Remove(key []byte) (*V, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.root == nil {
		return nil, false
	}
	if lf, ok := ix.root.(*leaf[V]); ok {
		if !bytes.Equal(lf.key, key) {
			return nil, false
		}
		ix.root = nil
		ix.alloc.Release(1)
		return lf.value, true
	}

	var grandSlot *node[V]
	var parent *innerNode[V]
	curSlot := &ix.root
	for {
		inner, isInner := (*curSlot).(*innerNode[V])
		if !isInner {
			break
		}
		if int(inner.byteOff) >= len(key) {
			return nil, false
		}
		grandSlot = curSlot
		parent = inner
		curSlot = &inner.children[sliceIndex(key[inner.byteOff], inner.bitOff)]
	}

	lf, ok := (*curSlot).(*leaf[V])
	if !ok || !bytes.Equal(lf.key, key) {
		return nil, false
	}

	*curSlot = nil
	ix.alloc.Release(1)

	if count, last := nonEmptyChildren[V](parent); count == 1 {
		*grandSlot = parent.children[last]
		ix.alloc.Release(1)
	}
	return lf.value, true
}
