package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/internal/storage"
)

const (
	// FileName is the database file created under the data directory.
	FileName = "SecureDB.db"

	// BucketName holds every record.
	BucketName = "secure_store"
)

var bucketName = []byte(BucketName)

// Default connection settings.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultReconnectInterval = time.Second
)

// Config configures the transactional backend.
type Config struct {
	// Path is the database file. Typically <data dir>/SecureDB.db.
	Path string

	// ConnectTimeout bounds how long a caller waits for the connection.
	ConnectTimeout time.Duration

	// ReconnectInterval is the minimum gap between connection attempts
	// after a failure.
	ReconnectInterval time.Duration
}

// PathIn returns the database path inside dataDir.
func PathIn(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// record is the persisted form of one entry.
type record struct {
	Key  string `json:"key"`
	Data string `json:"data"`
}

// Backend is the transactional storage.Backend.
type Backend struct {
	conn   *connector
	logger *slog.Logger
}

// Option configures the Backend.
type Option func(*options)

type options struct {
	open   OpenFunc
	logger *slog.Logger
}

// WithOpenFunc replaces the function used to open the database.
func WithOpenFunc(fn OpenFunc) Option {
	return func(o *options) {
		o.open = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates the backend. No file is touched until the first operation.
func New(cfg Config, opts ...Option) *Backend {
	o := options{open: DefaultOpen, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}

	return &Backend{
		conn:   newConnector(cfg.Path, cfg.ConnectTimeout, cfg.ReconnectInterval, o.open, o.logger),
		logger: o.logger,
	}
}

// Kind implements storage.Backend.
func (b *Backend) Kind() storage.Kind {
	return storage.KindTransactional
}

func (b *Backend) view(ctx context.Context, fn func(*bbolt.Bucket) error) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}
	return db.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

func (b *Backend) update(ctx context.Context, fn func(*bbolt.Bucket) error) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(bucketName))
	})
}

func (b *Backend) db(ctx context.Context) (*bbolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.conn.acquire(ctx)
}

// Write implements storage.Backend.
func (b *Backend) Write(ctx context.Context, key, blob string) error {
	data, err := json.Marshal(record{Key: key, Data: blob})
	if err != nil {
		return storage.OperationFailed("write", key, err)
	}
	err = b.update(ctx, func(bkt *bbolt.Bucket) error {
		return bkt.Put([]byte(key), data)
	})
	return wrap("write", key, err)
}

// Read implements storage.Backend.
func (b *Backend) Read(ctx context.Context, key string) (string, error) {
	var (
		blob  string
		found bool
	)
	err := b.view(ctx, func(bkt *bbolt.Bucket) error {
		if v := bkt.Get([]byte(key)); v != nil {
			blob, found = blobOf(v), true
		}
		return nil
	})
	if err != nil {
		return "", wrap("read", key, err)
	}
	if !found {
		return "", domain.ErrNotFound
	}
	return blob, nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.update(ctx, func(bkt *bbolt.Bucket) error {
		return bkt.Delete([]byte(key))
	})
	return wrap("delete", key, err)
}

// Evict implements storage.Backend.
func (b *Backend) Evict(ctx context.Context, key, blob string) (bool, error) {
	removed := false
	err := b.update(ctx, func(bkt *bbolt.Bucket) error {
		v := bkt.Get([]byte(key))
		if v == nil || blobOf(v) != blob {
			return nil
		}
		removed = true
		return bkt.Delete([]byte(key))
	})
	if err != nil {
		return false, wrap("evict", key, err)
	}
	return removed, nil
}

// Clear implements storage.Backend.
func (b *Backend) Clear(ctx context.Context) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName) != nil {
			if err := tx.DeleteBucket(bucketName); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
	return wrap("clear", "", err)
}

// Keys implements storage.Backend.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.view(ctx, func(bkt *bbolt.Bucket) error {
		return bkt.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, wrap("keys", "", err)
	}
	return keys, nil
}

type candidate struct {
	key  string
	blob string
}

// evictQueue is an unbounded FIFO of eviction candidates. push never
// blocks, so a read transaction feeding it cannot wait on a writer.
type evictQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []candidate
	closed bool
}

func newEvictQueue() *evictQueue {
	q := &evictQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *evictQueue) push(c candidate) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *evictQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pop blocks until a candidate is available. It reports false once the
// queue is closed and drained.
func (q *evictQueue) pop() (candidate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return candidate{}, false
	}
	c := q.items[0]
	q.items[0] = candidate{}
	q.items = q.items[1:]
	return c, true
}

// Scan implements storage.Backend.
//
// The cursor walks the bucket inside one read transaction. Each entry the
// visitor selects is queued for a helper goroutine that evicts it in its
// own write transaction, so the cursor never waits on a writer.
func (b *Backend) Scan(ctx context.Context, fn storage.VisitFunc) (storage.ScanStats, error) {
	var stats storage.ScanStats

	db, err := b.db(ctx)
	if err != nil {
		return stats, err
	}

	var (
		queue    = newEvictQueue()
		done     = make(chan struct{})
		evicted  int
		evictErr []error
	)
	go func() {
		defer close(done)
		for {
			c, ok := queue.pop()
			if !ok {
				return
			}
			removed, err := b.Evict(context.WithoutCancel(ctx), c.key, c.blob)
			if err != nil {
				evictErr = append(evictErr, err)
				continue
			}
			if removed {
				evicted++
			}
		}
	}()

	var errs []error
	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key, blob := string(k), blobOf(v)
			stats.Scanned++
			if fn(key, blob) {
				queue.push(candidate{key: key, blob: blob})
			}
		}
		return nil
	})
	queue.close()
	<-done
	if err != nil {
		errs = append(errs, wrap("scan", "", err))
	}

	stats.Evicted = evicted
	errs = append(errs, evictErr...)
	return stats, errors.Join(errs...)
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	if err := b.conn.close(); err != nil {
		return storage.OperationFailed("close", "", err)
	}
	return nil
}

// blobOf extracts the stored blob from a raw record. A record that does
// not parse is returned verbatim so the codec rejects it as corrupt.
func blobOf(v []byte) string {
	var r record
	if err := json.Unmarshal(v, &r); err != nil {
		return string(v)
	}
	return r.Data
}

// wrap classifies err. Connection and lifecycle errors pass through;
// anything else came from bbolt itself.
func wrap(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrBackendUnavailable),
		errors.Is(err, domain.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return storage.OperationFailed(op, key, err)
	}
}
