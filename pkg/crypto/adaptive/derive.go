package adaptive

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of every derived key.
const KeySize = 32

// Argon2id parameters. Derivation runs once per store, not per value.
const (
	argon2Time    = 1
	argon2Memory  = 19 * 1024
	argon2Threads = 1
)

// schemeSalt is fixed so that a secret always maps to the same key;
// records carry no salt of their own.
var schemeSalt = []byte("securekv/envelope/v1")

// ErrEmptySecret is returned when no secret material is supplied.
var ErrEmptySecret = errors.New("adaptive: secret must not be empty")

// DeriveKey turns an arbitrary-length secret into a KeySize key for the
// given cipher type. CipherAuto derives the key of the algorithm New
// would pick.
func DeriveKey(secret []byte, cipherType CipherType) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if _, err := ParseCipherType(string(cipherType)); err != nil {
		return nil, err
	}
	cipherType = resolve(cipherType)

	master := argon2.IDKey(secret, schemeSalt, argon2Time, argon2Memory, argon2Threads, KeySize)
	defer ZeroKey(master)

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, master, nil, []byte("securekv:"+string(cipherType)))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("adaptive: expand key: %w", err)
	}
	return key, nil
}

// ZeroKey overwrites key material in place.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
