package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/securekv/pkg/secret"
)

// Attribute keys containing any of these are redacted. "key" is absent on
// purpose: store keys are logged as "key" and are not secret.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"passphrase",
	"credential",
	"token",
	"auth",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive redacts non-empty string attributes whose key looks
// sensitive or whose value is a generated secret, descending into groups.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v != "" && (IsSensitiveKey(a.Key) || secret.HasPrefix(v)) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	return a
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
