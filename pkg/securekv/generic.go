package securekv

import (
	"context"
	"time"
)

// Set stores value under key. See Store.Set.
func Set[T any](ctx context.Context, s *Store, key string, value T, ttl time.Duration) error {
	return s.Set(ctx, key, value, ttl)
}

// Get returns the value under key decoded as T. See Store.Get.
func Get[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}
