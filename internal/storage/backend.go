package storage

import (
	"context"
	"fmt"

	"github.com/yndnr/securekv/internal/core/domain"
)

// Kind identifies a backend variant.
type Kind string

const (
	KindEphemeralSession Kind = "ephemeral-session"
	KindDurableLocal     Kind = "durable-local"
	KindTransactional    Kind = "transactional"
)

// ParseKind validates a backend kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindEphemeralSession, KindDurableLocal, KindTransactional:
		return k, nil
	default:
		return "", fmt.Errorf("storage: unknown backend kind %q", s)
	}
}

// VisitFunc receives each entry during Scan. Returning true asks the
// backend to evict the entry, provided it still holds blob.
type VisitFunc func(key, blob string) bool

// ScanStats summarizes a Scan pass.
type ScanStats struct {
	Scanned int // entries handed to the visitor
	Evicted int // entries actually removed
}

// Backend persists encoded envelopes.
//
// Implementations must be safe for concurrent use. Errors from the
// underlying substrate match domain.ErrBackendOperationFailed, and
// connection failures match domain.ErrBackendUnavailable.
type Backend interface {
	// Kind returns the backend variant.
	Kind() Kind

	// Write stores blob under key, replacing any previous value.
	Write(ctx context.Context, key, blob string) error

	// Read returns the blob stored under key.
	// Returns domain.ErrNotFound if the key is absent.
	Read(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Evict removes key only if it still holds blob and reports whether
	// it did.
	Evict(ctx context.Context, key, blob string) (bool, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Keys lists the stored keys.
	Keys(ctx context.Context) ([]string, error)

	// Scan visits every entry present when the pass starts, at most once
	// each, evicting those the visitor selects. Entries removed during
	// the pass are skipped. A per-entry failure does not stop the pass;
	// failures are joined into the returned error.
	Scan(ctx context.Context, fn VisitFunc) (ScanStats, error)

	// Close releases the backend. Later calls return domain.ErrClosed.
	Close() error
}

// OperationFailed wraps a substrate error with the operation and key.
func OperationFailed(op, key string, err error) error {
	if key == "" {
		return domain.ErrBackendOperationFailed.WithDetails(op).Wrap(err)
	}
	return domain.ErrBackendOperationFailed.WithDetails(fmt.Sprintf("%s %q", op, key)).Wrap(err)
}
