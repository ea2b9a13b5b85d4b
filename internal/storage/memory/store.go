package memory

import (
	"github.com/yndnr/securekv/pkg/cmap"
)

// Store is an in-memory string store. It implements storage.SyncStore.
type Store struct {
	items *cmap.Map[string]
}

// Option configures the Store.
type Option func(*Store)

// WithShards sets the number of map shards. n must be a power of 2;
// anything else keeps the default.
func WithShards(n int) Option {
	return func(s *Store) {
		s.items = cmap.NewWithShards[string](n)
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.items == nil {
		s.items = cmap.New[string]()
	}
	return s
}

// GetItem returns the value under key.
func (s *Store) GetItem(key string) (string, bool, error) {
	v, ok := s.items.Get(key)
	return v, ok, nil
}

// SetItem stores value under key.
func (s *Store) SetItem(key, value string) error {
	s.items.Set(key, value)
	return nil
}

// RemoveItem deletes key.
func (s *Store) RemoveItem(key string) error {
	s.items.Delete(key)
	return nil
}

// CompareAndRemove deletes key only while it still holds old.
func (s *Store) CompareAndRemove(key, old string) (bool, error) {
	return s.items.DeleteIf(key, func(v string) bool { return v == old }), nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.items.Clear()
	return nil
}

// Keys returns all keys in lexical order.
func (s *Store) Keys() ([]string, error) {
	return s.items.Keys(), nil
}

// Close drops all entries.
func (s *Store) Close() error {
	s.items.Clear()
	return nil
}
