// Package contentkey builds the opaque, length-prefixed binary keys the
// index package expects, and fingerprints arbitrary key material down to
// a fixed-size digest suitable for compact logging or comparison.
package contentkey

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of a Fingerprint.
const Size = blake2b.Size256

// Fingerprint is a fixed-size content digest of a key.
type Fingerprint [Size]byte

// String renders f as hex, for logging.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%x", f[:])
}

// Fingerprint256 digests raw key material into a fixed-size value. It is
// used where a bounded-size, comparable stand-in for an arbitrary-length
// key is needed — log fields, metrics labels — never as the index key
// itself, since collisions are possible however unlikely.
func Fingerprint256(raw []byte) Fingerprint {
	return blake2b.Sum256(raw)
}

// Build returns the length-prefixed opaque key the index package
// requires: a 4-byte big-endian ksize header followed by the raw key
// bytes. Prefixing guarantees no two distinct raw keys ever produce one
// key that is a byte-prefix of the other's encoding.
func Build(raw []byte) []byte {
	out := make([]byte, 4+len(raw))
	binary.BigEndian.PutUint32(out, uint32(len(raw)))
	copy(out[4:], raw)
	return out
}

// Raw strips the ksize header added by Build, returning the original key
// bytes. ok is false if key is shorter than its own declared header.
func Raw(key []byte) (raw []byte, ok bool) {
	if len(key) < 4 {
		return nil, false
	}
	n := binary.BigEndian.Uint32(key)
	if uint64(len(key)) < 4+uint64(n) {
		return nil, false
	}
	return key[4 : 4+n], true
}
