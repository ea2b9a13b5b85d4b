// Package logger builds the process log/slog logger for SecureKV.
//
//   - logger.go: handler construction and runtime level control
//   - context.go: carrying a logger through a context
//   - redact.go: masking of secret-looking attributes
//
// Library packages never import this package; they accept a *slog.Logger
// and fall back to slog.Default().
package logger
