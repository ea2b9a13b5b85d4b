package config

import (
	"sort"

	"github.com/yndnr/securekv/internal/infra/confloader"
	"github.com/yndnr/securekv/internal/telemetry/logger"
)

// Load builds a File from defaults, the optional YAML file at path,
// SECUREKV_* environment variables and flag overrides, in increasing
// priority. The result is not verified.
func Load(path string, flags map[string]any) (*File, error) {
	cfg := Default()
	if err := newLoader(path, flags).Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Setting is one value set by a configuration source.
type Setting struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Explicit lists the settings that the file, the environment and flags
// set, sorted by key. Defaults are left out and sensitive values masked.
func Explicit(path string, flags map[string]any) ([]Setting, error) {
	loader := newLoader(path, flags)
	if err := loader.Load(Default()); err != nil {
		return nil, err
	}

	keys := loader.Keys()
	sort.Strings(keys)
	settings := make([]Setting, 0, len(keys))
	for _, key := range keys {
		value := loader.GetString(key)
		if value != "" && logger.IsSensitiveKey(key) {
			value = maskSecret(value)
		}
		settings = append(settings, Setting{Key: key, Value: value})
	}
	return settings, nil
}

func newLoader(path string, flags map[string]any) *confloader.Loader {
	return confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithFlags(flags),
	)
}
