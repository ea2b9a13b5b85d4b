package config

import "time"

// File is the root configuration for the securekv CLI.
type File struct {
	Store    StoreSection    `koanf:"store" json:"store" yaml:"store"`
	Security SecuritySection `koanf:"security" json:"security" yaml:"security"`
	Log      LogSection      `koanf:"log" json:"log" yaml:"log"`
}

// StoreSection selects and tunes the backend.
type StoreSection struct {
	// Type is "local" or "session".
	Type string `koanf:"type" json:"type" yaml:"type"`

	// Transactional selects the bbolt backend regardless of Type.
	Transactional bool `koanf:"transactional" json:"transactional" yaml:"transactional"`

	DataDir string `koanf:"data_dir" json:"data_dir" yaml:"data_dir"`

	// Shards is the session backend's lock shard count, a power of two.
	// Zero uses the default.
	Shards int `koanf:"shards" json:"shards" yaml:"shards"`

	// AutoCleanInterval is the sweep period. Zero disables sweeping.
	AutoCleanInterval time.Duration `koanf:"auto_clean_interval" json:"auto_clean_interval" yaml:"auto_clean_interval"`

	ConnectTimeout    time.Duration `koanf:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`
	ReconnectInterval time.Duration `koanf:"reconnect_interval" json:"reconnect_interval" yaml:"reconnect_interval"`
}

// SecuritySection configures envelope encryption.
type SecuritySection struct {
	Encryption bool   `koanf:"encryption" json:"encryption" yaml:"encryption"`
	Secret     string `koanf:"secret" json:"secret" yaml:"secret"`
	Cipher     string `koanf:"cipher" json:"cipher" yaml:"cipher"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
