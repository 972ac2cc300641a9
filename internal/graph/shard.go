package graph

import (
	"fmt"
	"os"
	"sync"
)

// ShardGuard holds the development/test shard identifier with
// set-once-then-freeze semantics: it may be set explicitly exactly once
// before first use; after any read the value is frozen and a later set is a
// usage error. Schema construction reads the shard, and may do so
// concurrently with test setup, so the freeze check and assignment are
// guarded.
type ShardGuard struct {
	mu    sync.Mutex
	value string
	used  bool
}

// NewShardGuard creates a guard with the given initial value (usually the
// environment default).
func NewShardGuard(value string) *ShardGuard {
	return &ShardGuard{value: value}
}

// Set assigns the shard. It fails if the shard has already been read.
func (g *ShardGuard) Set(shard string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used {
		return fmt.Errorf("cannot set shard to %q: shard already in use", shard)
	}
	g.value = shard
	return nil
}

// Get returns the shard and freezes it. An empty shard means none is active.
func (g *ShardGuard) Get() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.used = true
	return g.value
}

// DefaultShard resolves the shard a development or test process should use
// from its environment: a CI build identifier when running under CI, the
// local username otherwise, and none in deployed environments.
func DefaultShard() string {
	if os.Getenv("CI") != "" {
		if id := os.Getenv("BUILD_PART_ID"); id != "" {
			return id
		}
		return "OneShardToRuleThemAll"
	}
	if os.Getenv("DATACENTER") == "" || os.Getenv("DATACENTER") == "local" {
		if user := os.Getenv("USER"); user != "" {
			return user
		}
		return "test_user"
	}
	return ""
}
