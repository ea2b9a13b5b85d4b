package securekv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/securekv/pkg/clock"
	"github.com/yndnr/securekv/pkg/crypto/adaptive"
)

var epoch = time.UnixMilli(1_700_000_000_000)

type user struct {
	Name  string   `json:"name"`
	Age   int      `json:"age"`
	Roles []string `json:"roles"`
}

type variant struct {
	name string
	cfg  func(dir string) Config
}

var variants = []variant{
	{"session", func(dir string) Config {
		return Config{Type: TypeSession}
	}},
	{"local", func(dir string) Config {
		return Config{Type: TypeLocal, DataDir: dir}
	}},
	{"transactional", func(dir string) Config {
		return Config{Type: TypeLocal, UseTransactional: true, DataDir: dir}
	}},
}

func openStore(t *testing.T, cfg Config, clk clock.Clock) *Store {
	t.Helper()
	s, err := Open(cfg, WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// forEachVariant runs fn against every backend kind, with and without
// encryption.
func forEachVariant(t *testing.T, fn func(t *testing.T, s *Store, clk *clock.Manual)) {
	for _, v := range variants {
		for _, encrypted := range []bool{false, true} {
			name := v.name
			if encrypted {
				name += "/encrypted"
			}
			t.Run(name, func(t *testing.T) {
				cfg := v.cfg(t.TempDir())
				if encrypted {
					cfg.UseEncryption = true
					cfg.Secret = "correct horse battery staple"
				}
				clk := clock.NewManual(epoch)
				fn(t, openStore(t, cfg, clk), clk)
			})
		}
	}
}

func TestStore_BackendKind(t *testing.T) {
	want := map[string]Kind{
		"session":       KindEphemeralSession,
		"local":         KindDurableLocal,
		"transactional": KindTransactional,
	}
	for _, v := range variants {
		s := openStore(t, v.cfg(t.TempDir()), clock.NewManual(epoch))
		require.Equal(t, want[v.name], s.Kind(), v.name)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		alice := user{Name: "Alice", Age: 30, Roles: []string{"admin"}}

		require.NoError(t, Set(ctx, s, "user", alice, 0))
		require.NoError(t, Set(ctx, s, "count", 42, time.Minute))
		require.NoError(t, Set(ctx, s, "name", "bob", 0))

		got, ok, err := Get[user](ctx, s, "user")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, alice, got)

		n, ok, err := Get[int](ctx, s, "count")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 42, n)

		name, ok, err := Get[string](ctx, s, "name")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "bob", name)

		_, ok, err = Get[string](ctx, s, "missing")
		require.NoError(t, err)
		require.False(t, ok)

		// Presence check without decoding.
		ok, err = s.Get(ctx, "user", nil)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestStore_LastWriteWins(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "k", "v1", time.Second))
		require.NoError(t, s.Set(ctx, "k", "v2", 0))

		clk.Advance(time.Hour)
		got, ok, err := Get[string](ctx, s, "k")
		require.NoError(t, err)
		require.True(t, ok, "overwrite must replace the old expiration")
		require.Equal(t, "v2", got)
	})
}

func TestStore_ExpirationBoundary(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "k", "v", time.Second))

		clk.Advance(time.Second)
		ok, err := s.Get(ctx, "k", nil)
		require.NoError(t, err)
		require.True(t, ok, "entry is readable at exactly its expiration")

		clk.Advance(time.Millisecond)
		ok, err = s.Get(ctx, "k", nil)
		require.NoError(t, err)
		require.False(t, ok)

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		require.NotContains(t, keys, "k", "expired entry is removed on read")
	})
}

func TestStore_NegativeTTL(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "k", "v", -time.Second))

		ok, err := s.Get(ctx, "k", nil)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestStore_CorruptionIsolation(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "good", "v", 0))
		require.NoError(t, s.backend.Write(ctx, "bad", "\x00not an envelope"))

		ok, err := s.Get(ctx, "bad", nil)
		require.NoError(t, err)
		require.False(t, ok)

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"good"}, keys)

		got, ok, err := Get[string](ctx, s, "good")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v", got)
	})
}

func TestStore_RemoveAndClearAreIdempotent(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "a", 1, 0))
		require.NoError(t, s.Set(ctx, "b", 2, time.Millisecond))
		clk.Advance(time.Second)

		require.NoError(t, s.Remove(ctx, "a"))
		require.NoError(t, s.Remove(ctx, "a"))
		require.NoError(t, s.Remove(ctx, "never"))

		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		require.Empty(t, keys)
	})
}

func TestStore_ValueType(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "k", "not a number", 0))

		_, _, err := Get[int](ctx, s, "k")
		require.ErrorIs(t, err, ErrValueType)
	})
}

func TestStore_EmptyKey(t *testing.T) {
	s := openStore(t, Config{Type: TypeSession}, clock.NewManual(epoch))
	ctx := context.Background()

	require.ErrorIs(t, s.Set(ctx, "", 1, 0), ErrInvalidKey)
	_, err := s.Get(ctx, "", nil)
	require.ErrorIs(t, err, ErrInvalidKey)
	require.ErrorIs(t, s.Remove(ctx, ""), ErrInvalidKey)
}

func TestStore_EncodeFailure(t *testing.T) {
	s := openStore(t, Config{Type: TypeSession}, clock.NewManual(epoch))
	require.ErrorIs(t, s.Set(context.Background(), "k", func() {}, 0), ErrEncodeFailure)
}

func TestStore_Sweep(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "short", 1, time.Second))
		require.NoError(t, s.Set(ctx, "long", 2, time.Hour))
		require.NoError(t, s.Set(ctx, "forever", 3, 0))
		require.NoError(t, s.backend.Write(ctx, "corrupt", "???"))

		clk.Advance(time.Minute)
		stats, err := s.Sweep(ctx)
		require.NoError(t, err)
		require.Equal(t, 4, stats.Scanned)
		require.Equal(t, 1, stats.Evicted)
		require.Equal(t, 1, stats.Skipped)

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"long", "forever", "corrupt"}, keys)
	})
}

func TestStore_SweeperConverges(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			cfg := v.cfg(t.TempDir())
			cfg.AutoCleanInterval = 5 * time.Millisecond
			clk := clock.NewManual(epoch)
			s := openStore(t, cfg, clk)
			ctx := context.Background()

			for i := 1; i <= 10; i++ {
				require.NoError(t, s.Set(ctx, "k"+string(rune('a'+i)), i, time.Duration(i)*time.Second))
			}
			require.NoError(t, s.Set(ctx, "keep", "v", 0))

			clk.Advance(11 * time.Second)
			require.Eventually(t, func() bool {
				keys, err := s.Keys(ctx)
				return err == nil && len(keys) == 1 && keys[0] == "keep"
			}, 5*time.Second, 10*time.Millisecond)
		})
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	forEachVariant(t, func(t *testing.T, s *Store, clk *clock.Manual) {
		ctx := context.Background()
		var wg sync.WaitGroup

		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					key := "g" + string(rune('0'+g))
					if err := s.Set(ctx, key, i, time.Second); err != nil {
						t.Errorf("Set() error = %v", err)
						return
					}
					if _, err := s.Get(ctx, key, nil); err != nil {
						t.Errorf("Get() error = %v", err)
						return
					}
				}
			}(g)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := s.Sweep(ctx); err != nil {
					t.Errorf("Sweep() error = %v", err)
					return
				}
			}
		}()
		wg.Wait()

		// Nothing has expired, so concurrent sweeps must not have removed
		// any entry.
		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 4)
	})
}

func TestStore_Close(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			cfg := v.cfg(t.TempDir())
			cfg.AutoCleanInterval = time.Millisecond
			s, err := Open(cfg, WithClock(clock.NewManual(epoch)))
			require.NoError(t, err)
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "k", "v", 0))

			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			require.ErrorIs(t, s.Set(ctx, "k", "v", 0), ErrClosed)
			_, err = s.Get(ctx, "k", nil)
			require.ErrorIs(t, err, ErrClosed)
			require.ErrorIs(t, s.Remove(ctx, "k"), ErrClosed)
			require.ErrorIs(t, s.Clear(ctx), ErrClosed)
			_, err = s.Keys(ctx)
			require.ErrorIs(t, err, ErrClosed)
			_, err = s.Sweep(ctx)
			require.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestStore_CloseDuringSweep(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			s, err := Open(v.cfg(t.TempDir()), WithClock(clock.NewManual(epoch)))
			require.NoError(t, err)
			ctx := context.Background()
			for _, k := range []string{"a", "b", "c", "d"} {
				require.NoError(t, s.Set(ctx, k, k, time.Millisecond))
			}

			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Sweep(ctx)
					errs <- err
				}()
			}
			require.NoError(t, s.Close())
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					require.ErrorIs(t, err, ErrClosed)
				}
			}
		})
	}
}

func TestStore_Persistence(t *testing.T) {
	for _, v := range variants[1:] {
		t.Run(v.name, func(t *testing.T) {
			cfg := v.cfg(t.TempDir())
			cfg.UseEncryption = true
			cfg.Secret = "s3cr3t"
			ctx := context.Background()

			s, err := Open(cfg)
			require.NoError(t, err)
			require.NoError(t, s.Set(ctx, "k", "persisted", 0))
			require.NoError(t, s.Close())

			s, err = Open(cfg)
			require.NoError(t, err)
			defer s.Close()
			got, ok, err := Get[string](ctx, s, "k")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "persisted", got)
		})
	}
}

func TestStore_EncryptionOpacity(t *testing.T) {
	for _, v := range variants[1:] {
		t.Run(v.name, func(t *testing.T) {
			cfg := v.cfg(t.TempDir())
			cfg.UseEncryption = true
			cfg.Secret = "alpha"
			ctx := context.Background()

			s, err := Open(cfg)
			require.NoError(t, err)
			require.NoError(t, s.Set(ctx, "card", "4111-1111-1111-1111", 0))
			raw, err := s.backend.Read(ctx, "card")
			require.NoError(t, err)
			require.NotContains(t, raw, "4111")
			require.NotContains(t, raw, "expire")
			require.NoError(t, s.Close())

			// A different secret sees the entry as corrupt: a miss, and
			// the entry is gone afterwards.
			cfg.Secret = "beta"
			s, err = Open(cfg)
			require.NoError(t, err)
			defer s.Close()

			ok, err := s.Get(ctx, "card", nil)
			require.NoError(t, err)
			require.False(t, ok)
			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			require.Empty(t, keys)
		})
	}
}

func TestStore_PlaintextLayout(t *testing.T) {
	s := openStore(t, Config{Type: TypeSession}, clock.NewManual(epoch))
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", map[string]int{"n": 1}, time.Second))

	raw, err := s.backend.Read(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"value":{"n":1},"expire":1700000001000}`, raw)
}

func TestStore_TransactionalUnavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	s := openStore(t, Config{UseTransactional: true, DataDir: filepath.Join(file, "data")}, clock.System{})
	ctx := context.Background()

	err := s.Set(ctx, "k", "v", 0)
	require.ErrorIs(t, err, ErrBackendUnavailable)

	// Reads degrade to a miss.
	ok, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, s.Remove(ctx, "k"), ErrBackendUnavailable)
	require.ErrorIs(t, s.Clear(ctx), ErrBackendUnavailable)
}

func TestStore_ReadFailureLogsErrorCode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := Open(Config{UseTransactional: true, DataDir: filepath.Join(file, "data")}, WithLogger(l))
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Contains(t, buf.String(), `"msg":"read failed, treating as miss"`)
	require.Contains(t, buf.String(), `"code":"`+ErrBackendUnavailable.Code+`"`)
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, ErrClosed.Code, ErrorCode(fmt.Errorf("op: %w", ErrClosed)))
	require.Empty(t, ErrorCode(errors.New("plain")))
	require.Empty(t, ErrorCode(nil))
}

func TestStore_CanceledContext(t *testing.T) {
	s := openStore(t, Config{Type: TypeSession}, clock.NewManual(epoch))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k", nil)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestStore_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := Open(Config{Type: TypeSession}, WithRegisterer(reg), WithClock(clock.NewManual(epoch)))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	_, _ = s.Get(ctx, "k", nil)
	_, _ = s.Get(ctx, "missing", nil)

	expected := `
# HELP securekv_get_results_total Get outcomes (hit, miss, expired, corrupt, error)
# TYPE securekv_get_results_total counter
securekv_get_results_total{result="hit"} 1
securekv_get_results_total{result="miss"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "securekv_get_results_total"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"session", Config{Type: TypeSession}, false},
		{"local default type", Config{DataDir: "d"}, false},
		{"local without dir", Config{Type: TypeLocal}, true},
		{"transactional without dir", Config{Type: TypeSession, UseTransactional: true}, true},
		{"unknown type", Config{Type: "cookie"}, true},
		{"encryption without secret", Config{Type: TypeSession, UseEncryption: true}, true},
		{"encryption with secret", Config{Type: TypeSession, UseEncryption: true, Secret: "s"}, false},
		{"chacha", Config{Type: TypeSession, UseEncryption: true, Secret: "s", Cipher: adaptive.CipherChaCha20}, false},
		{"unknown cipher", Config{Type: TypeSession, UseEncryption: true, Secret: "s", Cipher: "rot13"}, true},
		{"auto cipher", Config{Type: TypeSession, UseEncryption: true, Secret: "s", Cipher: adaptive.CipherAuto}, false},
		{"power of two shards", Config{Type: TypeSession, Shards: 64}, false},
		{"odd shards", Config{Type: TypeSession, Shards: 3}, true},
		{"negative shards", Config{Type: TypeSession, Shards: -4}, true},
		{"negative interval", Config{Type: TypeSession, AutoCleanInterval: -time.Second}, true},
		{"negative timeout", Config{Type: TypeSession, ConnectTimeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				_, openErr := Open(tt.cfg)
				require.ErrorIs(t, openErr, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStore_AutoCipherAndShards(t *testing.T) {
	s := openStore(t, Config{
		Type:          TypeSession,
		UseEncryption: true,
		Secret:        "correct horse battery staple",
		Cipher:        adaptive.CipherAuto,
		Shards:        4,
	}, clock.NewManual(epoch))
	ctx := context.Background()

	in := user{Name: "Alice", Age: 30, Roles: []string{"admin"}}
	require.NoError(t, s.Set(ctx, "u", in, 0))

	got, ok, err := Get[user](ctx, s, "u")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, got)

	raw, err := s.backend.Read(ctx, "u")
	require.NoError(t, err)
	require.NotContains(t, raw, "Alice")
}

func TestConfig_BackendKind(t *testing.T) {
	require.Equal(t, KindDurableLocal, Config{}.BackendKind())
	require.Equal(t, KindEphemeralSession, Config{Type: TypeSession}.BackendKind())
	require.Equal(t, KindTransactional, Config{Type: TypeSession, UseTransactional: true}.BackendKind())
}
