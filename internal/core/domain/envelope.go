package domain

import (
	"encoding/json"
	"time"
)

// Envelope is the unit persisted per key: the caller's value plus an
// optional absolute expiration.
type Envelope struct {
	// Value is the caller's payload as JSON. It is opaque to the store.
	Value json.RawMessage `json:"value"`

	// ExpireAt is the expiration in Unix milliseconds; nil never expires.
	ExpireAt *int64 `json:"expire"`
}

// NewEnvelope wraps value with an expiration derived from ttl.
//
// A zero ttl never expires. A negative ttl produces an expiration in the
// past, so the entry is born expired.
func NewEnvelope(value json.RawMessage, ttl time.Duration, now time.Time) Envelope {
	env := Envelope{Value: value}
	if ttl != 0 {
		at := now.UnixMilli() + ttl.Milliseconds()
		env.ExpireAt = &at
	}
	return env
}

// Expired reports whether the envelope is past its expiration at nowMs.
// The comparison is strict: at exactly ExpireAt the entry is still live.
func (e Envelope) Expired(nowMs int64) bool {
	return e.ExpireAt != nil && nowMs > *e.ExpireAt
}
