package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"

	// CipherAuto resolves to the faster algorithm for the running platform.
	// Data sealed under it is only portable between platforms that resolve
	// the same way.
	CipherAuto CipherType = "auto"
)

// ErrCiphertextTooShort is returned when a ciphertext cannot even hold a nonce.
var ErrCiphertextTooShort = errors.New("adaptive: ciphertext too short")

// ParseCipherType validates a configured algorithm name.
// The empty string selects AES-GCM.
func ParseCipherType(s string) (CipherType, error) {
	switch CipherType(s) {
	case "", CipherAESGCM:
		return CipherAESGCM, nil
	case CipherChaCha20:
		return CipherChaCha20, nil
	case CipherAuto:
		return CipherAuto, nil
	default:
		return "", fmt.Errorf("adaptive: unknown cipher type %q", s)
	}
}

// Cipher provides authenticated encryption.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt seals plaintext; the random nonce is prepended to the output.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens a value produced by Encrypt.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher for key, picking the algorithm from the platform.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, resolve(CipherAuto))
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	case CipherAuto:
		return New(key)
	default:
		return nil, fmt.Errorf("adaptive: unknown cipher type %q", cipherType)
	}
}

// resolve maps CipherAuto to a concrete algorithm.
func resolve(t CipherType) CipherType {
	if t != CipherAuto {
		return t
	}
	if hasAESNI() {
		return CipherAESGCM
	}
	return CipherChaCha20
}

// Go's crypto/aes uses hardware instructions on amd64 and arm64.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// aeadCipher adapts a cipher.AEAD to Cipher with nonce-prefixed output.
type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType { return c.typ }

func (c *aeadCipher) NonceSize() int { return c.aead.NonceSize() }

func (c *aeadCipher) Overhead() int { return c.aead.Overhead() }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("adaptive: read nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextTooShort
	}
	return c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
