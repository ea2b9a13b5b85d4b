// Package storagetest provides the conformance suite every storage.Backend
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/internal/storage"
)

// Factory creates a fresh, empty Backend for one test.
type Factory func(t *testing.T) storage.Backend

// Run runs all conformance tests against the backends produced by factory.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		test func(t *testing.T, b storage.Backend)
	}{
		{"WriteRead", testWriteRead},
		{"ReadMissing", testReadMissing},
		{"Overwrite", testOverwrite},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"EvictCompares", testEvictCompares},
		{"ClearIdempotent", testClearIdempotent},
		{"Keys", testKeys},
		{"ScanVisitsEachOnce", testScanVisitsEachOnce},
		{"ScanEvicts", testScanEvicts},
		{"ScanEmpty", testScanEmpty},
		{"ConcurrentWrites", testConcurrentWrites},
		{"CanceledContext", testCanceledContext},
		{"Closed", testClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := factory(t)
			defer b.Close()
			tt.test(t, b)
		})
	}
}

func testWriteRead(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "user", `{"value":"alice","expire":null}`))

	got, err := b.Read(ctx, "user")
	require.NoError(t, err)
	require.Equal(t, `{"value":"alice","expire":null}`, got)
}

func testReadMissing(t *testing.T, b storage.Backend) {
	_, err := b.Read(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testOverwrite(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "k", "v1"))
	require.NoError(t, b.Write(ctx, "k", "v2"))

	got, err := b.Read(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", got)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)
}

func testDeleteIdempotent(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "k", "v"))
	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "never-written"))

	_, err := b.Read(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testEvictCompares(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "k", "stale"))
	stale, err := b.Read(ctx, "k")
	require.NoError(t, err)

	// A writer replaces the entry between the read and the eviction.
	require.NoError(t, b.Write(ctx, "k", "fresh"))

	removed, err := b.Evict(ctx, "k", stale)
	require.NoError(t, err)
	require.False(t, removed, "evict must not remove a rewritten entry")

	got, err := b.Read(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "fresh", got)

	removed, err = b.Evict(ctx, "k", "fresh")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = b.Evict(ctx, "k", "fresh")
	require.NoError(t, err)
	require.False(t, removed)
}

func testClearIdempotent(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Write(ctx, fmt.Sprintf("k%d", i), "v"))
	}
	require.NoError(t, b.Clear(ctx))
	require.NoError(t, b.Clear(ctx))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)

	// The backend stays usable after a clear.
	require.NoError(t, b.Write(ctx, "after", "v"))
	_, err = b.Read(ctx, "after")
	require.NoError(t, err)
}

func testKeys(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	want := []string{"alpha", "beta", "gamma"}
	for _, k := range want {
		require.NoError(t, b.Write(ctx, k, "v"))
	}

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, want, keys)
}

func testScanVisitsEachOnce(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, b.Write(ctx, fmt.Sprintf("key-%03d", i), fmt.Sprintf("blob-%d", i)))
	}

	seen := make(map[string]int)
	stats, err := b.Scan(ctx, func(key, blob string) bool {
		seen[key]++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, n, stats.Scanned)
	require.Zero(t, stats.Evicted)
	require.Len(t, seen, n)
	for k, c := range seen {
		require.Equal(t, 1, c, "key %s visited %d times", k, c)
	}
}

func testScanEvicts(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, b.Write(ctx, fmt.Sprintf("key-%02d", i), fmt.Sprintf("%d", i%2)))
	}

	// Evicting every other entry exercises removal while the pass is
	// still in progress.
	stats, err := b.Scan(ctx, func(key, blob string) bool {
		return blob == "1"
	})
	require.NoError(t, err)
	require.Equal(t, 20, stats.Scanned)
	require.Equal(t, 10, stats.Evicted)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 10)
	for _, k := range keys {
		blob, err := b.Read(ctx, k)
		require.NoError(t, err)
		require.Equal(t, "0", blob)
	}
}

func testScanEmpty(t *testing.T, b storage.Backend) {
	stats, err := b.Scan(context.Background(), func(key, blob string) bool {
		t.Fatalf("visitor called on empty backend with %q", key)
		return false
	})
	require.NoError(t, err)
	require.Equal(t, storage.ScanStats{}, stats)
}

func testConcurrentWrites(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				if err := b.Write(ctx, key, key); err != nil {
					t.Errorf("Write(%s) error = %v", key, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 200)
}

func testCanceledContext(t *testing.T, b storage.Backend) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, b.Write(ctx, "k", "v"))
}

func testClosed(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "k", "v"))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	require.ErrorIs(t, b.Write(ctx, "k", "v"), domain.ErrClosed)
	_, err := b.Read(ctx, "k")
	require.ErrorIs(t, err, domain.ErrClosed)
	_, err = b.Scan(ctx, func(string, string) bool { return false })
	require.ErrorIs(t, err, domain.ErrClosed)
}
