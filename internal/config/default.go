package config

import (
	"github.com/yndnr/securekv/pkg/crypto/adaptive"
	"github.com/yndnr/securekv/pkg/securekv"
)

// Default configuration values.
const (
	DefaultType    = string(securekv.TypeLocal)
	DefaultDataDir = "./data"
	DefaultCipher  = string(adaptive.CipherAESGCM)

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *File {
	return &File{
		Store: StoreSection{
			Type:              DefaultType,
			DataDir:           DefaultDataDir,
			ConnectTimeout:    securekv.DefaultConnectTimeout,
			ReconnectInterval: securekv.DefaultReconnectInterval,
		},
		Security: SecuritySection{
			Cipher: DefaultCipher,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
