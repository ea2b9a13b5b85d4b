package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Prefix marks generated secrets.
const Prefix = "skv_"

// DefaultLength is the default number of random bytes.
const DefaultLength = 32

// Generate returns a new secret carrying length random bytes.
func Generate(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HasPrefix reports whether s looks like a generated secret.
func HasPrefix(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Fingerprint returns a short, non-reversible identifier for s.
func Fingerprint(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}
