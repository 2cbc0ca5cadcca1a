// Package crypto seals the LLM provider API key before it is written to the
// settings table. Each value gets its own random nonce.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// ErrCiphertext is returned when a stored value cannot be opened.
var ErrCiphertext = errors.New("invalid ciphertext")

// Sealer encrypts and decrypts secrets with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a base64 encoded 32 byte key. An empty key
// generates a random one, so secrets do not survive a restart.
func NewSealer(keyString string) (*Sealer, error) {
	var key []byte
	if keyString == "" {
		log.Warn().Msg("ENCRYPTION_KEY not set, stored API keys will not survive a restart")
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, err
		}
	} else {
		var err error
		key, err = base64.StdEncoding.DecodeString(keyString)
		if err != nil {
			return nil, fmt.Errorf("decoding encryption key: %w", err)
		}
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes for AES-256")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (s *Sealer) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("%w: too short", ErrCiphertext)
	}
	plaintext, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(plaintext), nil
}

// MaskAPIKey returns a masked version of the API key for display (e.g., "sk-...abc1")
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 10 {
		return "***"
	}
	return apiKey[:3] + "..." + apiKey[len(apiKey)-4:]
}
