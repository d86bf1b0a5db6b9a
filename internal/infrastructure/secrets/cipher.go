// Package secrets encrypts store credentials at rest with NaCl secretbox.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	// sealedPrefix versions the sealed format
	sealedPrefix = "sb1:"
)

var (
	ErrInvalidKey    = errors.New("secrets: credential key must be 32 bytes, base64 encoded")
	ErrMalformed     = errors.New("secrets: malformed sealed value")
	ErrDecryptFailed = errors.New("secrets: decryption failed")
)

// CredentialCipher seals and opens short secrets such as store API secrets.
// Sealed values are "sb1:" followed by base64(nonce || box).
type CredentialCipher struct {
	key  [keySize]byte
	rand io.Reader
}

// NewCredentialCipher creates a cipher from a base64 encoded 32 byte key
func NewCredentialCipher(encodedKey string) (*CredentialCipher, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	c := &CredentialCipher{rand: rand.Reader}
	copy(c.key[:], raw)
	return c, nil
}

// NewDerivedCipher derives the key from a passphrase with HKDF-SHA256.
// It is meant for development setups without a configured key.
func NewDerivedCipher(passphrase, salt string) (*CredentialCipher, error) {
	c := &CredentialCipher{rand: rand.Reader}
	r := hkdf.New(sha256.New, []byte(passphrase), []byte(salt), []byte("storesync credential key"))
	if _, err := io.ReadFull(r, c.key[:]); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}
	return c, nil
}

// GenerateKey returns a new random base64 encoded key
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext. An empty plaintext stays empty.
func (c *CredentialCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: read nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal
func (c *CredentialCipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformed
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

// IsSealed reports whether value looks like a sealed secret
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
