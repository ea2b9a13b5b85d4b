package config

import "strings"

// Sanitize returns a copy of the config with the secret masked.
func Sanitize(cfg *File) *File {
	sanitized := *cfg
	if sanitized.Security.Secret != "" {
		sanitized.Security.Secret = maskSecret(sanitized.Security.Secret)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
