// Package codec converts between caller values and the strings persisted
// by a backend.
//
// Every stored string is the JSON form of a domain.Envelope. With
// encryption enabled that JSON is sealed with an AEAD cipher and the
// result (nonce followed by ciphertext) is base64 encoded.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yndnr/securekv/internal/core/domain"
	"github.com/yndnr/securekv/pkg/clock"
	"github.com/yndnr/securekv/pkg/crypto/adaptive"
)

// Codec encodes and decodes envelopes. It is safe for concurrent use.
type Codec struct {
	cipher adaptive.Cipher // nil means plaintext
	clock  clock.Clock
}

// New creates a codec. A nil cipher stores envelopes as plain JSON.
func New(c adaptive.Cipher, clk clock.Clock) *Codec {
	if clk == nil {
		clk = clock.System{}
	}
	return &Codec{cipher: c, clock: clk}
}

// NewWithSecret derives a key from secret and returns an encrypting codec.
func NewWithSecret(secret string, cipherType adaptive.CipherType, clk clock.Clock) (*Codec, error) {
	key, err := adaptive.DeriveKey([]byte(secret), cipherType)
	if err != nil {
		return nil, err
	}
	defer adaptive.ZeroKey(key)

	c, err := adaptive.NewWithType(key, cipherType)
	if err != nil {
		return nil, err
	}
	return New(c, clk), nil
}

// Encrypted reports whether the codec seals envelopes.
func (c *Codec) Encrypted() bool {
	return c.cipher != nil
}

// Encode wraps value in an envelope expiring after ttl and serializes it.
// See domain.NewEnvelope for ttl semantics.
func (c *Codec) Encode(value any, ttl time.Duration) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", domain.ErrEncodeFailure.Wrap(err)
	}
	return c.EncodeEnvelope(domain.NewEnvelope(raw, ttl, c.clock.Now()))
}

// EncodeEnvelope serializes an already built envelope.
func (c *Codec) EncodeEnvelope(env domain.Envelope) (string, error) {
	if env.Value == nil {
		env.Value = json.RawMessage("null")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", domain.ErrEncodeFailure.Wrap(err)
	}
	if c.cipher == nil {
		return string(data), nil
	}

	sealed, err := c.cipher.Encrypt(data, nil)
	if err != nil {
		return "", domain.ErrEncodeFailure.Wrap(err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode parses a stored string back into an envelope.
//
// Every failure matches domain.ErrDecodeFailure. A wrong secret and a
// damaged record are indistinguishable.
func (c *Codec) Decode(blob string) (domain.Envelope, error) {
	data := []byte(blob)
	if c.cipher != nil {
		sealed, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			return domain.Envelope{}, domain.ErrDecodeFailure.WithDetails("base64").Wrap(err)
		}
		data, err = c.cipher.Decrypt(sealed, nil)
		if err != nil {
			return domain.Envelope{}, domain.ErrDecodeFailure.WithDetails("decrypt").Wrap(err)
		}
	}
	return parseEnvelope(data)
}

func parseEnvelope(data []byte) (domain.Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.Envelope{}, domain.ErrDecodeFailure.WithDetails("json").Wrap(err)
	}
	if fields == nil {
		return domain.Envelope{}, domain.ErrDecodeFailure.WithDetails("envelope is null")
	}

	value, ok := fields["value"]
	if !ok {
		return domain.Envelope{}, domain.ErrDecodeFailure.WithDetails("missing value")
	}

	env := domain.Envelope{Value: value}
	if raw, ok := fields["expire"]; ok {
		if err := json.Unmarshal(raw, &env.ExpireAt); err != nil {
			return domain.Envelope{}, domain.ErrDecodeFailure.WithDetails(fmt.Sprintf("expire %s", raw)).Wrap(err)
		}
	}
	return env, nil
}
