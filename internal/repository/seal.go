package repository

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TokenSealer encrypts bearer tokens before they reach a backing store,
// so a leaked table dump does not yield usable credentials.
type TokenSealer struct {
	aead cipher.AEAD
}

// NewTokenSealer builds a sealer from a 32-byte key.
func NewTokenSealer(key []byte) (*TokenSealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("repository: invalid sealing key: %w", err)
	}
	return &TokenSealer{aead: aead}, nil
}

// Seal encrypts the token. The nonce is prepended to the ciphertext.
func (s *TokenSealer) Seal(token string) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("repository: failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, []byte(token), nil), nil
}

// Open decrypts a sealed token.
func (s *TokenSealer) Open(sealed []byte) (string, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("repository: sealed token too short")
	}
	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("repository: failed to unseal token: %w", err)
	}
	return string(plain), nil
}
