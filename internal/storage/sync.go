package storage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/yndnr/securekv/internal/core/domain"
)

// SyncStore is a synchronous string-to-string store in the style of the
// Web Storage API. Every method completes before returning.
type SyncStore interface {
	// GetItem returns the value under key and whether it exists.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key.
	SetItem(key, value string) error

	// RemoveItem deletes key; absent keys are ignored.
	RemoveItem(key string) error

	// CompareAndRemove deletes key only if its value equals old.
	CompareAndRemove(key, old string) (bool, error)

	// Clear removes every key.
	Clear() error

	// Keys returns all keys in enumeration order.
	Keys() ([]string, error)

	// Close releases the substrate.
	Close() error
}

// SyncBackend adapts a SyncStore to Backend.
type SyncBackend struct {
	kind   Kind
	store  SyncStore
	closed atomic.Bool
}

// NewSyncBackend creates a backend of the given kind over store.
func NewSyncBackend(kind Kind, store SyncStore) *SyncBackend {
	return &SyncBackend{kind: kind, store: store}
}

// Kind implements Backend.
func (b *SyncBackend) Kind() Kind {
	return b.kind
}

func (b *SyncBackend) check(ctx context.Context) error {
	if b.closed.Load() {
		return domain.ErrClosed
	}
	return ctx.Err()
}

// Write implements Backend.
func (b *SyncBackend) Write(ctx context.Context, key, blob string) error {
	if err := b.check(ctx); err != nil {
		return err
	}
	if err := b.store.SetItem(key, blob); err != nil {
		return OperationFailed("write", key, err)
	}
	return nil
}

// Read implements Backend.
func (b *SyncBackend) Read(ctx context.Context, key string) (string, error) {
	if err := b.check(ctx); err != nil {
		return "", err
	}
	blob, ok, err := b.store.GetItem(key)
	if err != nil {
		return "", OperationFailed("read", key, err)
	}
	if !ok {
		return "", domain.ErrNotFound
	}
	return blob, nil
}

// Delete implements Backend.
func (b *SyncBackend) Delete(ctx context.Context, key string) error {
	if err := b.check(ctx); err != nil {
		return err
	}
	if err := b.store.RemoveItem(key); err != nil {
		return OperationFailed("delete", key, err)
	}
	return nil
}

// Evict implements Backend.
func (b *SyncBackend) Evict(ctx context.Context, key, blob string) (bool, error) {
	if err := b.check(ctx); err != nil {
		return false, err
	}
	ok, err := b.store.CompareAndRemove(key, blob)
	if err != nil {
		return false, OperationFailed("evict", key, err)
	}
	return ok, nil
}

// Clear implements Backend.
func (b *SyncBackend) Clear(ctx context.Context) error {
	if err := b.check(ctx); err != nil {
		return err
	}
	if err := b.store.Clear(); err != nil {
		return OperationFailed("clear", "", err)
	}
	return nil
}

// Keys implements Backend.
func (b *SyncBackend) Keys(ctx context.Context) ([]string, error) {
	if err := b.check(ctx); err != nil {
		return nil, err
	}
	keys, err := b.store.Keys()
	if err != nil {
		return nil, OperationFailed("keys", "", err)
	}
	return keys, nil
}

// Scan implements Backend.
//
// The key set is captured before visiting so that removals made during
// the pass cannot shift positions and cause entries to be skipped.
func (b *SyncBackend) Scan(ctx context.Context, fn VisitFunc) (ScanStats, error) {
	var stats ScanStats
	if err := b.check(ctx); err != nil {
		return stats, err
	}

	keys, err := b.store.Keys()
	if err != nil {
		return stats, OperationFailed("scan", "", err)
	}

	var errs []error
	for _, key := range keys {
		if err := b.check(ctx); err != nil {
			errs = append(errs, err)
			break
		}

		blob, ok, err := b.store.GetItem(key)
		if err != nil {
			errs = append(errs, OperationFailed("scan", key, err))
			continue
		}
		if !ok {
			continue
		}

		stats.Scanned++
		if !fn(key, blob) {
			continue
		}
		removed, err := b.store.CompareAndRemove(key, blob)
		if err != nil {
			errs = append(errs, OperationFailed("evict", key, err))
			continue
		}
		if removed {
			stats.Evicted++
		}
	}
	return stats, errors.Join(errs...)
}

// Close implements Backend.
func (b *SyncBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.store.Close()
}
