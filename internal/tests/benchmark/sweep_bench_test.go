package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkSweepLive benchmarks a sweep pass over entries that all
// survive, the steady-state cost of the background sweeper.
func BenchmarkSweepLive(b *testing.B) {
	for _, count := range EntryCounts {
		b.Run(fmt.Sprintf("entries_%d", count), func(b *testing.B) {
			ctx := context.Background()
			s := openStore(b, profiles[2])
			prefill(b, s, count, time.Hour)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				stats, err := s.Sweep(ctx)
				if err != nil {
					b.Fatalf("Sweep failed: %v", err)
				}
				if stats.Evicted != 0 {
					b.Fatalf("evicted %d live entries", stats.Evicted)
				}
			}

			b.StopTimer()
			reportMemory(b, "mem")
		})
	}
}

// BenchmarkSweepExpired benchmarks evicting a full set of expired
// entries per backend.
func BenchmarkSweepExpired(b *testing.B) {
	forEachProfile(b, func(b *testing.B, p profile) {
		ctx := context.Background()
		s := openStore(b, p)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			prefill(b, s, 500, time.Nanosecond)
			time.Sleep(2 * time.Millisecond)
			b.StartTimer()

			stats, err := s.Sweep(ctx)
			if err != nil {
				b.Fatalf("Sweep failed: %v", err)
			}
			if stats.Evicted != 500 {
				b.Fatalf("evicted %d, want 500", stats.Evicted)
			}
		}
	})
}
