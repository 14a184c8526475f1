package index

import "errors"

var (
	// ErrKeyExists is returned by Insert when a leaf with byte-identical
	// key bytes is already present. The index is left unmodified.
	ErrKeyExists = errors.New("vmemcache/index: key already present")

	// ErrOutOfMemory is returned by Insert when the index's node budget
	// (see Options.NodeBudget) would be exceeded. The index is left
	// exactly as it was before the call.
	ErrOutOfMemory = errors.New("vmemcache/index: node allocation budget exhausted")
)
