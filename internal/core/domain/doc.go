// Package domain defines the core SecureKV domain types.
//
// Types here are pure values with no IO dependencies:
//
//   - Envelope: the {value, expire} record stored under every key
//   - Errors: the coded error taxonomy shared by codec, backends and store
//
// Callers compare errors with errors.Is against the exported sentinels;
// the code, not the message, decides equality.
package domain
