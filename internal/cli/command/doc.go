// Package command defines the securekv CLI using urfave/cli/v2.
//
//   - root.go: App, global flags, config and logger setup
//   - kv.go: set, get, rm, clear, keys
//   - sweep.go: one-shot expiry sweep
//   - daemon.go: long-running sweeper with config reload and metrics
//   - config.go: show and validate the effective configuration
//   - secret.go: generate secrets and print fingerprints
//   - version.go: build information
package command
