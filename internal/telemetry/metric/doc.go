// Package metric provides Prometheus metrics for SecureKV.
//
//   - prometheus.go: process registry and /metrics HTTP handler
//   - store.go: collectors for store operations and expiry sweeps
//
// All StoreMetrics methods are safe to call on a nil receiver, so library
// code records unconditionally and callers opt in by supplying metrics.
package metric
