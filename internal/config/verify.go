package config

import (
	"errors"
	"fmt"

	"github.com/yndnr/securekv/internal/telemetry/logger"
	"github.com/yndnr/securekv/pkg/crypto/adaptive"
	"github.com/yndnr/securekv/pkg/securekv"
)

// Verify validates the configuration.
func Verify(cfg *File) error {
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return cfg.StoreConfig().Validate()
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Format {
	case "", "json", "text":
	default:
		return errors.New("log.format must be json or text")
	}
	return nil
}

// StoreConfig converts the file schema into a store configuration.
func (f *File) StoreConfig() securekv.Config {
	return securekv.Config{
		Type:              securekv.StoreType(f.Store.Type),
		UseTransactional:  f.Store.Transactional,
		UseEncryption:     f.Security.Encryption,
		Secret:            f.Security.Secret,
		Cipher:            adaptive.CipherType(f.Security.Cipher),
		AutoCleanInterval: f.Store.AutoCleanInterval,
		DataDir:           f.Store.DataDir,
		Shards:            f.Store.Shards,
		ConnectTimeout:    f.Store.ConnectTimeout,
		ReconnectInterval: f.Store.ReconnectInterval,
	}
}

// LoggerConfig converts the log section into a logger configuration.
func (f *File) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	if f.Log.Level != "" {
		cfg.Level = f.Log.Level
	}
	if f.Log.Format != "" {
		cfg.Format = f.Log.Format
	}
	return cfg
}
