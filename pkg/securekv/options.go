package securekv

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/securekv/pkg/clock"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	clock      clock.Clock
	registerer prometheus.Registerer
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used for TTLs and expiry checks.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRegisterer registers the store's Prometheus metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
