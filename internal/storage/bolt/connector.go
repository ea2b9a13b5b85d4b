package bolt

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/yndnr/securekv/internal/core/domain"
)

// OpenFunc opens the database file at path. Timeout bounds the wait for
// the file lock.
type OpenFunc func(path string, timeout time.Duration) (*bbolt.DB, error)

// DefaultOpen creates the parent directory if needed and opens path.
func DefaultOpen(path string, timeout time.Duration) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
}

// connector lazily establishes and memoizes the database handle.
type connector struct {
	path    string
	timeout time.Duration
	open    OpenFunc
	logger  *slog.Logger

	group   singleflight.Group
	limiter *rate.Limiter

	mu      sync.Mutex
	db      *bbolt.DB
	lastErr error
	closed  bool
}

func newConnector(path string, timeout, reconnect time.Duration, open OpenFunc, logger *slog.Logger) *connector {
	return &connector{
		path:    path,
		timeout: timeout,
		open:    open,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(reconnect), 1),
	}
}

// acquire returns the shared handle, opening it on first use.
func (c *connector) acquire(ctx context.Context) (*bbolt.DB, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, domain.ErrClosed
	case c.db != nil:
		db := c.db
		c.mu.Unlock()
		return db, nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := c.group.DoChan("connect", c.connect)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*bbolt.DB), nil
	case <-ctx.Done():
		return nil, domain.ErrBackendUnavailable.WithDetails("waiting for connection").Wrap(ctx.Err())
	}
}

func (c *connector) connect() (any, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, domain.ErrClosed
	case c.db != nil:
		db := c.db
		c.mu.Unlock()
		return db, nil
	case !c.limiter.Allow():
		err := c.lastErr
		c.mu.Unlock()
		return nil, domain.ErrBackendUnavailable.WithDetails("reconnect throttled").Wrap(err)
	}
	c.mu.Unlock()

	start := time.Now()
	db, err := c.open(c.path, c.timeout)
	if err == nil {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
		if err != nil {
			_ = db.Close()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lastErr = err
		c.logger.Warn("transactional backend connect failed",
			"path", c.path,
			"error", err)
		return nil, domain.ErrBackendUnavailable.WithDetails(c.path).Wrap(err)
	}
	if c.closed {
		_ = db.Close()
		return nil, domain.ErrClosed
	}

	c.db = db
	c.lastErr = nil
	c.logger.Info("transactional backend connected",
		"path", c.path,
		"elapsed", time.Since(start))
	return db, nil
}

// close releases the handle. An open still in flight closes its own
// handle when it completes.
func (c *connector) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil
	return err
}
