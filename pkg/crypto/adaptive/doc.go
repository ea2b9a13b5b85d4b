// Package adaptive provides authenticated encryption for SecureKV envelopes.
//
// Supported algorithms:
//
//   - AES-256-GCM: preferred where the CPU has AES instructions
//   - ChaCha20-Poly1305: fallback for everything else
//
// Keys are never taken from the caller's secret directly; DeriveKey
// stretches the secret with Argon2id and expands it per algorithm with
// HKDF-SHA256, so the same secret yields different keys for different
// ciphers.
//
// Usage:
//
//	key, err := adaptive.DeriveKey([]byte(secret), adaptive.CipherAESGCM)
//	c, err := adaptive.NewWithType(key, adaptive.CipherAESGCM)
//	sealed, err := c.Encrypt(plaintext, nil)
//	plaintext, err := c.Decrypt(sealed, nil)
//
// All ciphers are safe for concurrent use.
package adaptive
