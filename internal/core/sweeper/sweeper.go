// Package sweeper evicts expired envelopes in the background.
//
// A Sweeper moves through Idle, Scheduled, Running and back to Scheduled
// on every tick, ending in Stopped once Stop is called. Passes never
// overlap: a tick that arrives while a pass is still running is dropped.
package sweeper

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/securekv/internal/core/codec"
	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/internal/storage"
	"github.com/yndnr/securekv/internal/telemetry/metric"
	"github.com/yndnr/securekv/pkg/clock"
)

// State is the sweeper lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateScheduled
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrStopped is returned by Start and RunOnce after Stop.
var ErrStopped = errors.New("sweeper: stopped")

// Stats describes one sweep pass.
type Stats struct {
	RunID   string
	Scanned int
	Evicted int
	Skipped int // entries that failed to decode
	Elapsed time.Duration
}

// Sweeper periodically scans a backend and evicts expired entries.
type Sweeper struct {
	backend  storage.Backend
	codec    *codec.Codec
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metric.StoreMetrics

	state atomic.Int32
	runMu sync.Mutex // serializes passes

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	cancel context.CancelFunc
	doneCh chan struct{}
	mu     sync.Mutex // guards Start/Stop transitions
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock sets the clock expiry is judged against.
func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// WithMetrics records each pass in m.
func WithMetrics(m *metric.StoreMetrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// New creates an idle sweeper that ticks every interval once started.
func New(b storage.Backend, c *codec.Codec, interval time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		backend:  b,
		codec:    c,
		interval: interval,
		clock:    clock.System{},
		logger:   slog.Default(),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Sweeper) State() State {
	return State(s.state.Load())
}

// Start schedules periodic passes. Starting a running sweeper is a no-op.
func (s *Sweeper) Start() error {
	if s.interval <= 0 {
		return errors.New("sweeper: interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateScheduled)) {
		if s.State() == StateStopped {
			return ErrStopped
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	go s.loop(ctx, s.doneCh)

	s.logger.Debug("sweeper started",
		"backend", s.backend.Kind(),
		"interval", s.interval)
	return nil
}

// Stop cancels the schedule, aborts a scheduled pass and waits for any
// pass in progress to return, including one started by a direct RunOnce
// call. Stop is idempotent; RunOnce returns ErrStopped afterwards.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	prev := State(s.state.Swap(int32(StateStopped)))
	cancel, done := s.cancel, s.doneCh
	s.mu.Unlock()

	if prev == StateStopped {
		return
	}
	if cancel != nil {
		cancel()
		<-done
	}
	s.runMu.Lock()
	// A pass started through RunOnce runs on the caller's context.
	s.runMu.Unlock()

	s.logger.Debug("sweeper stopped", "backend", s.backend.Kind())
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.state.CompareAndSwap(int32(StateScheduled), int32(StateRunning)) {
				return
			}
			// Errors are logged inside RunOnce; the next tick retries.
			_, _ = s.RunOnce(ctx)
			s.state.CompareAndSwap(int32(StateRunning), int32(StateScheduled))

		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single pass: every entry is decoded and the expired
// ones are evicted. Entries that fail to decode are left in place for the
// next read to clean up. Backend errors are logged and returned; the
// stats still describe the work that was done.
func (s *Sweeper) RunOnce(ctx context.Context) (Stats, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.State() == StateStopped {
		return Stats{}, ErrStopped
	}

	stats := Stats{RunID: s.newRunID()}
	start := time.Now()
	now := s.clock.Now().UnixMilli()

	scan, err := s.backend.Scan(ctx, func(key, blob string) bool {
		env, err := s.codec.Decode(blob)
		if err != nil {
			stats.Skipped++
			return false
		}
		return env.Expired(now)
	})

	stats.Scanned = scan.Scanned
	stats.Evicted = scan.Evicted
	stats.Elapsed = time.Since(start)
	s.metrics.ObserveSweep(stats.Evicted, stats.Skipped, stats.Elapsed)

	if err != nil {
		s.metrics.RecordBackendError("sweep")
		s.logger.Warn("sweep pass failed",
			"run_id", stats.RunID,
			"backend", s.backend.Kind(),
			"scanned", stats.Scanned,
			"evicted", stats.Evicted,
			"code", domain.GetErrorCode(err),
			"error", err)
		return stats, err
	}

	s.logger.Debug("sweep pass completed",
		"run_id", stats.RunID,
		"backend", s.backend.Kind(),
		"scanned", stats.Scanned,
		"evicted", stats.Evicted,
		"skipped", stats.Skipped,
		"elapsed", stats.Elapsed)
	return stats, nil
}

func (s *Sweeper) newRunID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}
