package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/internal/storage"
	"github.com/yndnr/securekv/internal/storage/memory"
	"github.com/yndnr/securekv/internal/storage/storagetest"
)

func TestSyncBackend_Memory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return storage.NewSyncBackend(storage.KindEphemeralSession, memory.New())
	})
}

func TestSyncBackend_Badger(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return storage.NewSyncBackend(storage.KindDurableLocal, newBadger(t, t.TempDir()))
	})
}

func newBadger(t *testing.T, dir string) *storage.BadgerStore {
	t.Helper()
	cfg := storage.DefaultBadgerConfig(dir)
	cfg.GCInterval = time.Hour
	cfg.SyncWrites = false
	s, err := storage.NewBadgerStore(cfg, slog.Default())
	require.NoError(t, err)
	return s
}

func TestBadgerStore_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "local")
	ctx := context.Background()

	b := storage.NewSyncBackend(storage.KindDurableLocal, newBadger(t, dir))
	require.NoError(t, b.Write(ctx, "k", "v"))
	require.NoError(t, b.Close())

	b = storage.NewSyncBackend(storage.KindDurableLocal, newBadger(t, dir))
	defer b.Close()
	got, err := b.Read(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestBadgerStore_KeysInByteOrder(t *testing.T) {
	s := newBadger(t, t.TempDir())
	defer s.Close()

	require.NoError(t, s.SetItem("b", "2"))
	require.NoError(t, s.SetItem("a", "1"))

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys)
}

func TestBadgerStore_Metrics(t *testing.T) {
	s := newBadger(t, t.TempDir())
	defer s.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, s.RegisterMetrics(reg))

	n, err := testutil.GatherAndCount(reg, "securekv_badger_lsm_size_bytes", "securekv_badger_value_log_size_bytes")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = s.GC()
	require.NoError(t, err)
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (f failingStore) GetItem(string) (string, bool, error) { return "", false, f.err }
func (f failingStore) SetItem(string, string) error { return f.err }
func (f failingStore) RemoveItem(string) error { return f.err }
func (f failingStore) CompareAndRemove(string, string) (bool, error) { return false, f.err }
func (f failingStore) Clear() error { return f.err }
func (f failingStore) Keys() ([]string, error) { return nil, f.err }
func (f failingStore) Close() error { return nil }

func TestSyncBackend_WrapsSubstrateErrors(t *testing.T) {
	quota := errors.New("quota exceeded")
	b := storage.NewSyncBackend(storage.KindDurableLocal, failingStore{err: quota})
	ctx := context.Background()

	err := b.Write(ctx, "k", "v")
	require.ErrorIs(t, err, domain.ErrBackendOperationFailed)
	require.ErrorIs(t, err, quota)

	_, err = b.Read(ctx, "k")
	require.ErrorIs(t, err, domain.ErrBackendOperationFailed)

	_, err = b.Scan(ctx, func(string, string) bool { return true })
	require.ErrorIs(t, err, domain.ErrBackendOperationFailed)
}

func TestParseKind(t *testing.T) {
	k, err := storage.ParseKind("transactional")
	require.NoError(t, err)
	require.Equal(t, storage.KindTransactional, k)

	_, err = storage.ParseKind("indexeddb")
	require.Error(t, err)
}
