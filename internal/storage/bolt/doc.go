// Package bolt provides the transactional SecureKV backend on bbolt.
//
// The database handle is opened by the first operation that needs it.
// Concurrent first callers share one open; a successful open is kept for
// the life of the backend, a failed one is retried by a later call once
// the reconnect interval has passed. Until then callers receive the last
// failure, matching domain.ErrBackendUnavailable.
//
// Each operation runs in its own bbolt transaction. Records are stored in
// the "secure_store" bucket as JSON objects {"key": ..., "data": ...}.
package bolt
