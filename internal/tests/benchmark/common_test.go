package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/securekv/internal/telemetry/logger"
	"github.com/yndnr/securekv/pkg/securekv"
)

// EntryCounts are the preload sizes for scale benchmarks.
var EntryCounts = []int{1000, 5000, 10000}

// profile is a store configuration under benchmark.
type profile struct {
	name    string
	kind    securekv.Kind
	encrypt bool
}

var profiles = []profile{
	{"session", securekv.KindEphemeralSession, false},
	{"session_encrypted", securekv.KindEphemeralSession, true},
	{"local", securekv.KindDurableLocal, false},
	{"local_encrypted", securekv.KindDurableLocal, true},
	{"transactional", securekv.KindTransactional, false},
	{"transactional_encrypted", securekv.KindTransactional, true},
}

// record is a representative stored value.
type record struct {
	UserID    string    `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	Scopes    []string  `json:"scopes"`
}

func newKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return "bench:" + strings.ToLower(id.String())
}

func newRecord(i int) record {
	return record{
		UserID:    fmt.Sprintf("user-%d", i%1000),
		IPAddress: "192.168.1.1",
		UserAgent: "BenchmarkTest/1.0",
		CreatedAt: time.Now(),
		Scopes:    []string{"read", "write"},
	}
}

func openStore(b *testing.B, p profile) *securekv.Store {
	b.Helper()

	cfg := securekv.DefaultConfig(b.TempDir())
	switch p.kind {
	case securekv.KindEphemeralSession:
		cfg.Type = securekv.TypeSession
	case securekv.KindTransactional:
		cfg.UseTransactional = true
	}
	if p.encrypt {
		cfg.UseEncryption = true
		cfg.Secret = "benchmark-secret"
	}

	s, err := securekv.Open(cfg, securekv.WithLogger(logger.Discard()))
	if err != nil {
		b.Fatalf("Open failed: %v", err)
	}
	b.Cleanup(func() { s.Close() })
	return s
}

// prefill writes count entries with the given TTL and returns their keys.
func prefill(b *testing.B, s *securekv.Store, count int, ttl time.Duration) []string {
	b.Helper()

	ctx := context.Background()
	keys := make([]string, count)
	for i := range keys {
		keys[i] = newKey()
		if err := s.Set(ctx, keys[i], newRecord(i), ttl); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
	return keys
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// forEachProfile runs benchFn once per store profile.
func forEachProfile(b *testing.B, benchFn func(b *testing.B, p profile)) {
	for _, p := range profiles {
		b.Run(p.name, func(b *testing.B) {
			benchFn(b, p)
		})
	}
}
