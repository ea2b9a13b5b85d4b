// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread across a power-of-two number of shards using murmur3,
// each shard guarded by its own RWMutex:
//
//	m := cmap.New[string]()
//	m.Set("key", "value")
//	val, ok := m.Get("key")
//
// Iteration (Range, Keys) locks one shard at a time, so it observes a
// per-shard consistent view rather than a global snapshot.
package cmap
