// Package config defines the securekv configuration file schema.
//
//   - spec.go: File struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation and conversion to securekv.Config
//   - sanitize.go: Log sanitization (hide the secret)
//   - load.go: Loading and listing the settings each source set
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// SECUREKV_* environment variables and command line flags.
package config
