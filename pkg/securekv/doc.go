// Package securekv is a key-value store that adds optional at-rest
// encryption and TTL expiration on top of a pluggable backend.
//
// Every value is wrapped in an envelope carrying its expiration, encoded
// as JSON and, when encryption is enabled, sealed with an AEAD cipher
// keyed from the configured secret. Reads never return an expired or
// undecodable value: such entries are removed and reported as a miss.
//
// Three backends are available, fixed when the store is opened:
//
//	TypeSession                    in-process memory
//	TypeLocal                      Badger database under DataDir/local
//	UseTransactional (any Type)    bbolt file DataDir/SecureDB.db
//
// A background sweeper evicts expired entries every AutoCleanInterval.
//
// Basic usage:
//
//	store, err := securekv.Open(securekv.Config{
//		Type:          securekv.TypeLocal,
//		DataDir:       "./data",
//		UseEncryption: true,
//		Secret:        os.Getenv("SECUREKV_SECRET"),
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	if err := securekv.Set(ctx, store, "user", User{Name: "Alice"}, time.Hour); err != nil {
//		return err
//	}
//	u, ok, err := securekv.Get[User](ctx, store, "user")
package securekv
