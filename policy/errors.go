package policy

import "errors"

// ErrOutOfMemory is returned by Attach when the policy's node budget (see
// Options.NodeBudget) would be exceeded.
var ErrOutOfMemory = errors.New("vmemcache/policy: node allocation budget exhausted")
