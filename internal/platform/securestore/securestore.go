// Package securestore seals small secrets at rest with per-scope keys.
//
// Keys are derived with HKDF-SHA256 from one service secret so a leaked
// row for one device cannot be opened with another device's key.
package securestore

import (
	"crypto/rand"
	"crypto/sha256"
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
	infoLabel = "newsgate/securestore/v1:"
)

// MinSecretLen is the minimum accepted service secret length in bytes.
const MinSecretLen = 32

// ErrOpen is returned when a sealed value cannot be authenticated.
var ErrOpen = errors.New("securestore: sealed value failed authentication")

// Sealer seals and opens values bound to a scope string.
type Sealer struct {
	secret []byte
	rand   io.Reader
}

// NewSealer returns a Sealer keyed by secret.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("securestore: secret must be at least %d bytes", MinSecretLen)
	}
	owned := make([]byte, len(secret))
	copy(owned, secret)
	return &Sealer{secret: owned, rand: rand.Reader}, nil
}

// Seal encrypts plaintext for scope. The nonce is prepended to the output.
func (s *Sealer) Seal(scope string, plaintext []byte) ([]byte, error) {
	key, err := s.deriveKey(scope)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("securestore: read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &key), nil
}

// Open decrypts a value previously sealed for scope.
func (s *Sealer) Open(scope string, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrOpen
	}
	key, err := s.deriveKey(scope)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return nil, ErrOpen
	}
	return plaintext, nil
}

func (s *Sealer) deriveKey(scope string) ([keySize]byte, error) {
	var key [keySize]byte
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return key, errors.New("securestore: scope is required")
	}
	reader := hkdf.New(sha256.New, s.secret, nil, []byte(infoLabel+scope))
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return key, fmt.Errorf("securestore: derive key: %w", err)
	}
	return key, nil
}
