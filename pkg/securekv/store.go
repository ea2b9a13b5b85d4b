package securekv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yndnr/securekv/internal/core/codec"
	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/internal/core/sweeper"
	"github.com/yndnr/securekv/internal/storage"
	"github.com/yndnr/securekv/internal/storage/bolt"
	"github.com/yndnr/securekv/internal/storage/memory"
	"github.com/yndnr/securekv/internal/telemetry/metric"
	"github.com/yndnr/securekv/pkg/clock"
	"github.com/yndnr/securekv/pkg/crypto/adaptive"
)

// Store is an encrypted, expiring key-value store. It is safe for
// concurrent use.
type Store struct {
	cfg     Config
	backend storage.Backend
	codec   *codec.Codec
	sweeper *sweeper.Sweeper
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metric.StoreMetrics

	closed atomic.Bool
}

// SweepStats describes one sweep pass.
type SweepStats struct {
	RunID   string        `json:"run_id" yaml:"run_id"`
	Scanned int           `json:"scanned" yaml:"scanned"`
	Evicted int           `json:"evicted" yaml:"evicted"`
	Skipped int           `json:"skipped" yaml:"skipped"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Open validates cfg, prepares the backend and starts the sweeper if an
// AutoCleanInterval is set. The transactional backend connects on first
// use, not here.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type == "" {
		cfg.Type = TypeLocal
	}
	if cfg.Cipher == "" {
		cfg.Cipher = adaptive.CipherAESGCM
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}

	o := options{
		logger: slog.Default(),
		clock:  clock.System{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	var m *metric.StoreMetrics
	if o.registerer != nil {
		var err error
		if m, err = metric.NewStoreMetrics(o.registerer); err != nil {
			return nil, fmt.Errorf("securekv: register metrics: %w", err)
		}
	}

	c := codec.New(nil, o.clock)
	if cfg.UseEncryption {
		var err error
		if c, err = codec.NewWithSecret(cfg.Secret, cfg.Cipher, o.clock); err != nil {
			return nil, domain.ErrInvalidConfig.Wrap(err)
		}
	}

	backend, err := openBackend(cfg, o)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:     cfg,
		backend: backend,
		codec:   c,
		clock:   o.clock,
		logger:  o.logger,
		metrics: m,
	}
	s.sweeper = sweeper.New(backend, c, cfg.AutoCleanInterval,
		sweeper.WithClock(o.clock),
		sweeper.WithLogger(o.logger),
		sweeper.WithMetrics(m),
	)
	if cfg.AutoCleanInterval > 0 {
		if err := s.sweeper.Start(); err != nil {
			_ = backend.Close()
			return nil, err
		}
	}

	s.logger.Info("store opened",
		"backend", backend.Kind(),
		"encrypted", c.Encrypted(),
		"auto_clean_interval", cfg.AutoCleanInterval)

	return s, nil
}

func openBackend(cfg Config, o options) (storage.Backend, error) {
	switch kind := cfg.BackendKind(); kind {
	case KindEphemeralSession:
		return storage.NewSyncBackend(kind, memory.New(memory.WithShards(cfg.Shards))), nil

	case KindTransactional:
		return bolt.New(bolt.Config{
			Path:              bolt.PathIn(cfg.DataDir),
			ConnectTimeout:    cfg.ConnectTimeout,
			ReconnectInterval: cfg.ReconnectInterval,
		}, bolt.WithLogger(o.logger)), nil

	default:
		db, err := storage.NewBadgerStore(storage.DefaultBadgerConfig(cfg.localDir()), o.logger)
		if err != nil {
			return nil, domain.ErrBackendUnavailable.WithDetails(cfg.localDir()).Wrap(err)
		}
		if o.registerer != nil {
			if err := db.RegisterMetrics(o.registerer); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("securekv: register metrics: %w", err)
			}
		}
		return storage.NewSyncBackend(kind, db), nil
	}
}

// Config returns the configuration the store was opened with, with
// defaults applied.
func (s *Store) Config() Config {
	return s.cfg
}

// Kind returns the backend in use.
func (s *Store) Kind() Kind {
	return s.backend.Kind()
}

func (s *Store) check(key string) error {
	if s.closed.Load() {
		return domain.ErrClosed
	}
	if key == "" {
		return domain.ErrInvalidKey
	}
	return nil
}

// Set stores value under key, replacing any previous entry. A zero ttl
// never expires; a negative ttl stores an entry that is already expired.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := s.check(key); err != nil {
		return err
	}
	s.metrics.RecordOp("set")

	blob, err := s.codec.Encode(value, ttl)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, key, blob); err != nil {
		s.metrics.RecordBackendError("write")
		return err
	}
	return nil
}

// Get loads the value under key into out, which must be a pointer (or nil
// to test presence only). It reports false when the key is absent,
// expired or undecodable; the latter two are removed first.
//
// Backend failures also read as a miss unless ctx is done, in which case
// ctx.Err() is returned. A stored value that does not fit out returns an
// error matching ErrValueType.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := s.check(key); err != nil {
		return false, err
	}
	s.metrics.RecordOp("get")

	blob, err := s.backend.Read(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.RecordGet(metric.GetMiss)
		return false, nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if errors.Is(err, domain.ErrClosed) {
			return false, err
		}
		s.metrics.RecordBackendError("read")
		s.metrics.RecordGet(metric.GetError)
		s.logger.Warn("read failed, treating as miss",
			"key", key,
			"code", domain.GetErrorCode(err),
			"error", err)
		return false, nil
	}

	env, err := s.codec.Decode(blob)
	if err != nil {
		s.metrics.RecordGet(metric.GetCorrupt)
		s.logger.Debug("corrupt entry evicted", "key", key, "error", err)
		s.evict(ctx, key, blob)
		return false, nil
	}
	if env.Expired(s.clock.Now().UnixMilli()) {
		s.metrics.RecordGet(metric.GetExpired)
		s.evict(ctx, key, blob)
		return false, nil
	}

	if out != nil {
		if err := json.Unmarshal(env.Value, out); err != nil {
			return false, domain.ErrValueType.WithDetails(key).Wrap(err)
		}
	}
	s.metrics.RecordGet(metric.GetHit)
	return true, nil
}

// evict removes key if it still holds blob. Failures are left for the
// next read or sweep.
func (s *Store) evict(ctx context.Context, key, blob string) {
	if _, err := s.backend.Evict(ctx, key, blob); err != nil {
		s.metrics.RecordBackendError("evict")
		s.logger.Debug("evict failed", "key", key, "error", err)
	}
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.check(key); err != nil {
		return err
	}
	s.metrics.RecordOp("remove")

	if err := s.backend.Delete(ctx, key); err != nil {
		s.metrics.RecordBackendError("delete")
		return err
	}
	return nil
}

// Clear removes every entry regardless of expiration.
func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return domain.ErrClosed
	}
	s.metrics.RecordOp("clear")

	if err := s.backend.Clear(ctx); err != nil {
		s.metrics.RecordBackendError("clear")
		return err
	}
	return nil
}

// Keys lists the stored keys, including entries that have expired but
// not yet been swept.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, domain.ErrClosed
	}
	s.metrics.RecordOp("keys")

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.metrics.RecordBackendError("keys")
		return nil, err
	}
	return keys, nil
}

// Sweep runs one expiry pass now, independent of AutoCleanInterval.
func (s *Store) Sweep(ctx context.Context) (SweepStats, error) {
	if s.closed.Load() {
		return SweepStats{}, domain.ErrClosed
	}
	s.metrics.RecordOp("sweep")

	st, err := s.sweeper.RunOnce(ctx)
	if errors.Is(err, sweeper.ErrStopped) {
		return SweepStats{}, domain.ErrClosed
	}
	return SweepStats{
		RunID:   st.RunID,
		Scanned: st.Scanned,
		Evicted: st.Evicted,
		Skipped: st.Skipped,
		Elapsed: st.Elapsed,
	}, err
}

// Close stops the sweeper, waiting for a pass in progress, and releases
// the backend. Calling Close again is a no-op; every other method
// returns ErrClosed afterwards.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.sweeper.Stop()
	err := s.backend.Close()

	s.logger.Info("store closed", "backend", s.backend.Kind())
	return err
}
