// Package secret generates encryption secrets and their fingerprints.
//
// Secret format:
//
//   - Prefix: skv_ (4 characters)
//   - Body: 43 characters of Base64 RawURL encoded random bytes
//   - Total: 47 characters
//
// A fingerprint is the first 8 bytes of the secret's SHA-256, hex encoded.
// It identifies which secret a deployment uses without revealing it.
package secret
