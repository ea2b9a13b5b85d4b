package securekv

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/internal/storage"
	"github.com/yndnr/securekv/internal/storage/bolt"
	"github.com/yndnr/securekv/pkg/crypto/adaptive"
)

// StoreType selects the synchronous substrate.
type StoreType string

const (
	// TypeLocal persists entries across restarts.
	TypeLocal StoreType = "local"
	// TypeSession keeps entries in memory for the life of the store.
	TypeSession StoreType = "session"
)

// Kind identifies the backend a configuration resolves to.
type Kind = storage.Kind

const (
	KindEphemeralSession = storage.KindEphemeralSession
	KindDurableLocal     = storage.KindDurableLocal
	KindTransactional    = storage.KindTransactional
)

// Default connection settings for the transactional backend.
const (
	DefaultConnectTimeout    = bolt.DefaultConnectTimeout
	DefaultReconnectInterval = bolt.DefaultReconnectInterval
)

// Config is fixed when the store is opened.
type Config struct {
	// Type selects local or session storage. Empty means TypeLocal.
	Type StoreType

	// UseTransactional selects the bbolt backend regardless of Type.
	UseTransactional bool

	// UseEncryption seals every envelope with Cipher keyed from Secret.
	UseEncryption bool

	// Secret is the key material. Required when UseEncryption is set;
	// there is no default.
	Secret string

	// Cipher is the AEAD algorithm. Empty means aes-gcm; auto picks the
	// faster one for the platform.
	Cipher adaptive.CipherType

	// Shards is the lock shard count of the session backend. It must be
	// a power of two; zero uses the default.
	Shards int

	// AutoCleanInterval is the sweep period. Zero disables sweeping.
	AutoCleanInterval time.Duration

	// DataDir holds the durable backends' files.
	DataDir string

	// ConnectTimeout bounds waiting for the transactional connection.
	ConnectTimeout time.Duration

	// ReconnectInterval is the minimum gap between connection attempts
	// after a failure.
	ReconnectInterval time.Duration
}

// DefaultConfig returns a local, unencrypted configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		Type:              TypeLocal,
		Cipher:            adaptive.CipherAESGCM,
		DataDir:           dataDir,
		ConnectTimeout:    DefaultConnectTimeout,
		ReconnectInterval: DefaultReconnectInterval,
	}
}

// BackendKind returns the backend this configuration selects.
func (c Config) BackendKind() Kind {
	switch {
	case c.UseTransactional:
		return KindTransactional
	case c.Type == TypeSession:
		return KindEphemeralSession
	default:
		return KindDurableLocal
	}
}

// Validate checks the configuration. Failures match ErrInvalidConfig.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf(format, args...))
	}

	switch c.Type {
	case "", TypeLocal, TypeSession:
	default:
		return invalid("unknown type %q", c.Type)
	}

	if c.UseEncryption {
		if c.Secret == "" {
			return invalid("encryption enabled without a secret")
		}
		if _, err := adaptive.ParseCipherType(string(c.Cipher)); err != nil {
			return domain.ErrInvalidConfig.Wrap(err)
		}
	}

	if c.Shards < 0 || c.Shards&(c.Shards-1) != 0 {
		return invalid("shards must be a power of two, got %d", c.Shards)
	}
	if c.AutoCleanInterval < 0 {
		return invalid("auto clean interval must not be negative")
	}
	if c.ConnectTimeout < 0 {
		return invalid("connect timeout must not be negative")
	}
	if c.ReconnectInterval < 0 {
		return invalid("reconnect interval must not be negative")
	}

	if c.BackendKind() != KindEphemeralSession && c.DataDir == "" {
		return invalid("%s backend requires a data dir", c.BackendKind())
	}
	return nil
}

// localDir is the Badger directory for the durable-local backend.
func (c Config) localDir() string {
	return filepath.Join(c.DataDir, "local")
}
