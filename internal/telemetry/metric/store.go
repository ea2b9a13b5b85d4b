package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Get outcomes recorded by RecordGet.
const (
	GetHit     = "hit"
	GetMiss    = "miss"
	GetExpired = "expired"
	GetCorrupt = "corrupt"
	GetError   = "error"
)

// StoreMetrics holds the collectors for one store.
type StoreMetrics struct {
	operations     *prometheus.CounterVec
	getResults     *prometheus.CounterVec
	backendErrors  *prometheus.CounterVec
	sweepRuns      prometheus.Counter
	sweepEvictions prometheus.Counter
	sweepSkipped   prometheus.Counter
	sweepDuration  prometheus.Histogram
}

// NewStoreMetrics creates the store collectors and registers them with reg.
func NewStoreMetrics(reg prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Store operations by kind",
		}, []string{"op"}),
		getResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "get_results_total",
			Help:      "Get outcomes (hit, miss, expired, corrupt, error)",
		}, []string{"result"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "backend_errors_total",
			Help:      "Backend failures by operation",
		}, []string{"op"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweep_runs_total",
			Help:      "Completed expiry sweep passes",
		}),
		sweepEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweep_evictions_total",
			Help:      "Entries evicted by expiry sweeps",
		}),
		sweepSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweep_skipped_total",
			Help:      "Undecodable entries left in place by expiry sweeps",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Expiry sweep pass duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.operations,
		m.getResults,
		m.backendErrors,
		m.sweepRuns,
		m.sweepEvictions,
		m.sweepSkipped,
		m.sweepDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordOp counts one store operation.
func (m *StoreMetrics) RecordOp(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
}

// RecordGet counts one Get outcome.
func (m *StoreMetrics) RecordGet(result string) {
	if m == nil {
		return
	}
	m.getResults.WithLabelValues(result).Inc()
}

// RecordBackendError counts one backend failure.
func (m *StoreMetrics) RecordBackendError(op string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(op).Inc()
}

// ObserveSweep records a finished sweep pass.
func (m *StoreMetrics) ObserveSweep(evicted, skipped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepEvictions.Add(float64(evicted))
	m.sweepSkipped.Add(float64(skipped))
	m.sweepDuration.Observe(elapsed.Seconds())
}
