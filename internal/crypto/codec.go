// Package crypto implements the symmetric codec protecting OAuth secrets at
// rest. Each encryption derives a one-off AES-256 key from the process master
// secret and a fresh salt, so the master secret itself never touches a cipher
// directly and equal plaintexts never produce equal ciphertexts.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

const (
	saltLen    = 16
	keyLen     = 32
	iterations = 120_000

	// encoded payloads are salt.nonce.ciphertext, base64url without padding.
	partDelimiter = "."
	partCount     = 3
)

// Codec encrypts and decrypts secrets with a key derived from a long-lived
// master secret. The zero value is unusable; construct with NewCodec.
type Codec struct {
	masterSecret []byte
}

// NewCodec returns a codec bound to the given master secret. An empty secret
// is accepted here so startup wiring stays simple, but every call on the
// resulting codec fails with ErrMasterSecretMissing.
func NewCodec(masterSecret string) *Codec {
	return &Codec{masterSecret: []byte(masterSecret)}
}

// Encrypt seals plaintext under a freshly derived key and returns the
// self-contained encoded payload. Two calls with the same plaintext yield
// different outputs.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if len(c.masterSecret) == 0 {
		return "", serrors.ErrMasterSecretMissing
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	enc := base64.RawURLEncoding
	return strings.Join([]string{
		enc.EncodeToString(salt),
		enc.EncodeToString(nonce),
		enc.EncodeToString(sealed),
	}, partDelimiter), nil
}

// Decrypt opens a payload produced by Encrypt. Any parse failure or
// authentication failure yields ErrCipherTampered; partial or garbage
// plaintext is never returned.
func (c *Codec) Decrypt(encoded string) (string, error) {
	if len(c.masterSecret) == 0 {
		return "", serrors.ErrMasterSecretMissing
	}

	parts := strings.Split(encoded, partDelimiter)
	if len(parts) != partCount {
		return "", fmt.Errorf("%w: expected %d parts, got %d", serrors.ErrCipherTampered, partCount, len(parts))
	}

	enc := base64.RawURLEncoding
	salt, err := enc.DecodeString(parts[0])
	if err != nil || len(salt) != saltLen {
		return "", fmt.Errorf("%w: bad salt", serrors.ErrCipherTampered)
	}
	nonce, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce", serrors.ErrCipherTampered)
	}
	sealed, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", serrors.ErrCipherTampered)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}
	if len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce length", serrors.ErrCipherTampered)
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", serrors.ErrCipherTampered, err)
	}

	return string(plaintext), nil
}

func (c *Codec) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.masterSecret, salt, iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}
	return aead, nil
}
