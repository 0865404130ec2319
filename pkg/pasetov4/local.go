package pasetov4

import (
	"crypto/hmac"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

const (
	localNonceSize = 32
	localTagSize   = 32
)

var (
	domainEncryptionKey = []byte("paseto-encryption-key")
	domainAuthKey       = []byte("paseto-auth-key-for-aead")
)

// Encrypt produces a v4.local token: XChaCha20 over payload with keys
// derived from the master key and a fresh 32-byte nonce via BLAKE2b, then a
// BLAKE2b-256 MAC over PAE(header, nonce, ciphertext, footer, implicit).
func Encrypt(key LocalKey, payload, footer, implicit []byte) (string, error) {
	nonce := make([]byte, localNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	return encryptWithNonce(key, nonce, payload, footer, implicit)
}

func encryptWithNonce(key LocalKey, nonce, payload, footer, implicit []byte) (string, error) {
	ek, n2, ak, err := deriveKeys(key, nonce)
	if err != nil {
		return "", err
	}

	cipher, err := chacha20.NewUnauthenticatedCipher(ek, n2)
	if err != nil {
		return "", fmt.Errorf("init stream cipher: %w", err)
	}
	ct := make([]byte, len(payload))
	cipher.XORKeyStream(ct, payload)

	tag, err := authTag(ak, nonce, ct, footer, implicit)
	if err != nil {
		return "", err
	}

	body := make([]byte, 0, localNonceSize+len(ct)+localTagSize)
	body = append(body, nonce...)
	body = append(body, ct...)
	body = append(body, tag...)

	return encode(headerLocal, body, footer), nil
}

// Decrypt checks and opens a v4.local token, returning the payload and
// footer bytes. The MAC is verified in constant time before any decryption.
func Decrypt(key LocalKey, raw string, implicit []byte) (payload, footer []byte, err error) {
	purpose, body, footer, err := Split(raw)
	if err != nil {
		return nil, nil, err
	}
	if purpose != PurposeLocal {
		return nil, nil, ErrTokenFormat
	}
	if len(body) < localNonceSize+localTagSize {
		return nil, nil, ErrTokenFormat
	}

	nonce := body[:localNonceSize]
	ct := body[localNonceSize : len(body)-localTagSize]
	tag := body[len(body)-localTagSize:]

	ek, n2, ak, err := deriveKeys(key, nonce)
	if err != nil {
		return nil, nil, err
	}

	want, err := authTag(ak, nonce, ct, footer, implicit)
	if err != nil {
		return nil, nil, err
	}
	if !hmac.Equal(want, tag) {
		return nil, nil, ErrDecryptFailed
	}

	cipher, err := chacha20.NewUnauthenticatedCipher(ek, n2)
	if err != nil {
		return nil, nil, fmt.Errorf("init stream cipher: %w", err)
	}
	payload = make([]byte, len(ct))
	cipher.XORKeyStream(payload, ct)

	return payload, footer, nil
}

// deriveKeys splits the master key into an encryption key, stream nonce,
// and auth key, all bound to the token nonce.
func deriveKeys(key LocalKey, nonce []byte) (ek, n2, ak []byte, err error) {
	encHash, err := blake2b.New(56, key[:])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("derive encryption key: %w", err)
	}
	encHash.Write(domainEncryptionKey)
	encHash.Write(nonce)
	tmp := encHash.Sum(nil)
	ek, n2 = tmp[:32], tmp[32:56]

	authHash, err := blake2b.New(32, key[:])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("derive auth key: %w", err)
	}
	authHash.Write(domainAuthKey)
	authHash.Write(nonce)
	ak = authHash.Sum(nil)

	return ek, n2, ak, nil
}

func authTag(ak, nonce, ct, footer, implicit []byte) ([]byte, error) {
	mac, err := blake2b.New(localTagSize, ak)
	if err != nil {
		return nil, fmt.Errorf("init mac: %w", err)
	}
	mac.Write(pae([]byte(headerLocal), nonce, ct, footer, implicit))
	return mac.Sum(nil), nil
}
