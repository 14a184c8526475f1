// Integration harness exercising the index and policy packages together
// through the control flow the surrounding cache would drive:
//
//	put    -> index.Insert    -> policy.Attach
//	get    -> index.Lookup    -> policy.Touch (on hit)
//	evict  -> policy.Evict    -> index.Remove
//	delete -> index.Remove    -> policy.Detach
//
// No exported Cache type is built here — the public cache API is out of
// scope — so this harness lives next to the tests that exercise it rather
// than under a package of its own.
package vmemcache_test

import (
	"testing"

	"github.com/jaiminpan/vmemcache/contentkey"
	"github.com/jaiminpan/vmemcache/index"
	"github.com/jaiminpan/vmemcache/policy"
)

// entry is what the harness's index leaves point at and what its policy
// nodes carry as data: the key (for policy-driven removal) and a payload.
type entry struct {
	key     []byte
	payload string
}

// testCache wires an index and a policy together the way the surrounding
// cache is expected to, per the control-flow comment above.
type testCache struct {
	ix *index.Index[entry]
	pl *policy.Policy[entry]

	// handles tracks each live key's policy handle so get/delete can
	// reach policy.Touch/policy.Detach in O(1), mirroring the
	// back-pointer slot the design describes.
	handles map[string]policy.Handle[entry]
}

func newTestCache() *testCache {
	return &testCache{
		ix:      index.New[entry](index.Options{}),
		pl:      policy.New[entry](policy.Options{}),
		handles: make(map[string]policy.Handle[entry]),
	}
}

func (c *testCache) put(rawKey []byte, payload string) error {
	key := contentkey.Build(rawKey)
	e := entry{key: key, payload: payload}

	h, err := c.pl.Attach(e)
	if err != nil {
		return err
	}
	if err := c.ix.Insert(key, &e); err != nil {
		c.pl.Detach(h)
		return err
	}
	c.handles[string(key)] = h
	return nil
}

func (c *testCache) get(rawKey []byte) (string, bool) {
	key := contentkey.Build(rawKey)
	v, ok := c.ix.Lookup(key)
	if !ok {
		return "", false
	}
	if h, ok := c.handles[string(key)]; ok {
		c.pl.Touch(h)
	}
	return v.payload, true
}

func (c *testCache) delete(rawKey []byte) (string, bool) {
	key := contentkey.Build(rawKey)
	v, ok := c.ix.Remove(key)
	if !ok {
		return "", false
	}
	if h, ok := c.handles[string(key)]; ok {
		c.pl.Detach(h)
		delete(c.handles, string(key))
	}
	return v.payload, true
}

// evictOldest drives the eviction path: policy picks the victim, the
// harness removes it from the index by its own recorded key.
func (c *testCache) evictOldest() (string, bool) {
	e, ok := c.pl.Evict()
	if !ok {
		return "", false
	}
	delete(c.handles, string(e.key))
	c.ix.Remove(e.key)
	return e.payload, true
}

func TestHarnessPutGetEvict(t *testing.T) {
	c := newTestCache()

	if err := c.put([]byte("a"), "payload-a"); err != nil {
		t.Fatal(err)
	}
	if err := c.put([]byte("b"), "payload-b"); err != nil {
		t.Fatal(err)
	}
	if err := c.put([]byte("c"), "payload-c"); err != nil {
		t.Fatal(err)
	}

	if v, ok := c.get([]byte("b")); !ok || v != "payload-b" {
		t.Fatalf("get(b) = %q, %v; want payload-b, true", v, ok)
	}
	if _, ok := c.get([]byte("z")); ok {
		t.Fatal("get(z) found a value, want absent")
	}

	// b was touched, so it should be the last evicted.
	for _, want := range []string{"payload-a", "payload-c", "payload-b"} {
		v, ok := c.evictOldest()
		if !ok || v != want {
			t.Fatalf("evictOldest() = %q, %v; want %q, true", v, ok, want)
		}
	}
	if _, ok := c.evictOldest(); ok {
		t.Fatal("evictOldest on empty cache reported a value")
	}
}

func TestHarnessDeleteBypassesEviction(t *testing.T) {
	c := newTestCache()

	if err := c.put([]byte("a"), "payload-a"); err != nil {
		t.Fatal(err)
	}
	if err := c.put([]byte("b"), "payload-b"); err != nil {
		t.Fatal(err)
	}

	v, ok := c.delete([]byte("a"))
	if !ok || v != "payload-a" {
		t.Fatalf("delete(a) = %q, %v; want payload-a, true", v, ok)
	}
	if _, ok := c.get([]byte("a")); ok {
		t.Fatal("deleted key still reachable via get")
	}

	got, ok := c.evictOldest()
	if !ok || got != "payload-b" {
		t.Fatalf("evictOldest() = %q, %v; want payload-b, true", got, ok)
	}
	if _, ok := c.evictOldest(); ok {
		t.Fatal("evictOldest found an entry after the only survivor was evicted")
	}
}

func TestHarnessPutDuplicateKeyDoesNotLeakPolicyNode(t *testing.T) {
	c := newTestCache()

	if err := c.put([]byte("dup"), "first"); err != nil {
		t.Fatal(err)
	}
	if err := c.put([]byte("dup"), "second"); err != index.ErrKeyExists {
		t.Fatalf("second put = %v, want ErrKeyExists", err)
	}

	// The rejected insert's policy node must have been detached, so only
	// one entry evicts.
	if v, ok := c.evictOldest(); !ok || v != "first" {
		t.Fatalf("evictOldest() = %q, %v; want first, true", v, ok)
	}
	if _, ok := c.evictOldest(); ok {
		t.Fatal("a second entry survived a rejected duplicate insert")
	}
}
