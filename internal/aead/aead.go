// Package aead wraps ChaCha20-Poly1305 as the vault's sole authenticated
// cipher, per spec.md §4.2.
package aead

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the ChaCha20-Poly1305 key size in bytes.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the ChaCha20-Poly1305 nonce size in bytes.
	NonceSize = chacha20poly1305.NonceSize
	// TagSize is the Poly1305 authentication tag size in bytes.
	TagSize = 16
)

// ErrAuthFailed is returned when a tag fails to verify: wrong passphrase,
// tampering, or on-disk corruption. Callers at the vault layer turn this
// into either an authentication retry (config decryption) or a data
// corruption error (item decryption), per spec.md §7.
var ErrAuthFailed = errors.New("aead: authentication failed")

// Engine encrypts and decrypts with a single fixed 32-byte key. Associated
// data is always empty, matching spec.md §4.2.
type Engine struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// New builds an Engine from a 32-byte key.
func New(key []byte) (*Engine, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aead: key must be %d bytes, got %d", KeySize, len(key))
	}

	a, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: failed to construct cipher: %w", err)
	}

	return &Engine{aead: a}, nil
}

// Seal encrypts plaintext under nonce, returning ciphertext and tag
// separately (the vault's on-disk layout stores them in distinct fields
// rather than concatenated, per spec.md §3).
func (e *Engine) Seal(nonce, plaintext []byte) (ciphertext, tag []byte, err error) {
	if len(nonce) != NonceSize {
		return nil, nil, fmt.Errorf("aead: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}

	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	n := len(sealed) - TagSize
	ciphertext = sealed[:n]
	tag = sealed[n:]
	return ciphertext, tag, nil
}

// Open verifies tag against ciphertext and, on success, returns the
// plaintext. Any tag length other than TagSize is rejected outright, per
// spec.md §4.2's "MUST reject any tag length not equal to 16 bytes".
func (e *Engine) Open(nonce, ciphertext, tag []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("aead: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes, got %d", ErrAuthFailed, TagSize, len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
