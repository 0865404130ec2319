package pasetov4

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
)

// LocalKeySize is the required length of a v4.local symmetric key.
const LocalKeySize = 32

// LocalKey is a 32-byte symmetric key for v4.local tokens.
type LocalKey [LocalKeySize]byte

// NewLocalKey validates raw key material and returns a typed key.
func NewLocalKey(raw []byte) (LocalKey, error) {
	var k LocalKey
	if len(raw) != LocalKeySize {
		return k, fmt.Errorf("%w: local key must be %d bytes, got %d", ErrInvalidKey, LocalKeySize, len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// GenerateLocalKey returns a fresh random v4.local key.
func GenerateLocalKey() (LocalKey, error) {
	var k LocalKey
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return k, fmt.Errorf("generate local key: %w", err)
	}
	return k, nil
}

// NewSigningKey builds an Ed25519 private key from a 32-byte seed.
func NewSigningKey(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: signing seed must be %d bytes, got %d", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// NewVerificationKey validates raw bytes as an Ed25519 public key.
func NewVerificationKey(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: verification key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
