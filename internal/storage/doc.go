// Package storage defines the backend contract SecureKV persists through
// and the backends built on it.
//
// A Backend stores opaque strings (encoded envelopes) under string keys.
// Three kinds exist:
//
//   - ephemeral-session: in-process memory, gone when the process exits
//   - durable-local: Badger database under the data directory
//   - transactional: bbolt file with a lazily established connection
//     (see package bolt)
//
// The first two are synchronous substrates described by SyncStore and
// adapted to Backend by NewSyncBackend.
//
// Evict is a compare-and-delete. Callers that decided to remove an entry
// based on a value they read pass that value back, so a concurrent write
// of a fresh value is never lost.
package storage
