package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/keysource"
	"github.com/ledgerline/shopauth/pkg/pasetov4"
)

type asymmetricMaterial struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	keyID   string
}

type symmetricMaterial struct {
	key   pasetov4.LocalKey
	keyID string
}

// KeyStore lazily materializes the three key slots from the key source.
// Each slot loads at most once per process via sync.OnceValues; a failed
// load is replayed identically to every later caller rather than retried,
// so a misconfigured key source fails loudly and deterministically. After a
// successful load the material is immutable and read without locks.
type KeyStore struct {
	loadAsymmetric   func() (asymmetricMaterial, error)
	loadAccessLocal  func() (symmetricMaterial, error)
	loadRefreshLocal func() (symmetricMaterial, error)
}

func NewKeyStore(source keysource.Source, logger *slog.Logger) *KeyStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &KeyStore{
		loadAsymmetric: sync.OnceValues(func() (asymmetricMaterial, error) {
			m, err := loadAsymmetric(source)
			if err != nil {
				logger.Error("key load failed", "purpose", domain.KeyAccessAsymmetric, "error", err)
				return asymmetricMaterial{}, err
			}
			logger.Info("key material loaded", "purpose", domain.KeyAccessAsymmetric, "kid", m.keyID)
			return m, nil
		}),
		loadAccessLocal: sync.OnceValues(func() (symmetricMaterial, error) {
			m, err := loadSymmetric(source, domain.KeyAccessSymmetric)
			if err != nil {
				logger.Error("key load failed", "purpose", domain.KeyAccessSymmetric, "error", err)
				return symmetricMaterial{}, err
			}
			logger.Info("key material loaded", "purpose", domain.KeyAccessSymmetric, "kid", m.keyID)
			return m, nil
		}),
		loadRefreshLocal: sync.OnceValues(func() (symmetricMaterial, error) {
			m, err := loadSymmetric(source, domain.KeyRefreshSymmetric)
			if err != nil {
				logger.Error("key load failed", "purpose", domain.KeyRefreshSymmetric, "error", err)
				return symmetricMaterial{}, err
			}
			logger.Info("key material loaded", "purpose", domain.KeyRefreshSymmetric, "kid", m.keyID)
			return m, nil
		}),
	}
}

// SigningKey returns the Ed25519 private key for v4.public access tokens.
func (k *KeyStore) SigningKey(ctx context.Context) (ed25519.PrivateKey, error) {
	m, err := k.loadAsymmetric()
	if err != nil {
		return nil, err
	}
	return m.private, nil
}

// VerificationKey returns the Ed25519 public key for v4.public access tokens.
func (k *KeyStore) VerificationKey(ctx context.Context) (ed25519.PublicKey, error) {
	m, err := k.loadAsymmetric()
	if err != nil {
		return nil, err
	}
	return m.public, nil
}

// SymmetricKey returns the v4.local key for one of the symmetric purposes.
func (k *KeyStore) SymmetricKey(ctx context.Context, purpose domain.KeyPurpose) (pasetov4.LocalKey, error) {
	m, err := k.symmetric(purpose)
	if err != nil {
		return pasetov4.LocalKey{}, err
	}
	return m.key, nil
}

// KeyID returns the configured key id for a purpose, triggering the
// one-time load if necessary.
func (k *KeyStore) KeyID(ctx context.Context, purpose domain.KeyPurpose) (string, error) {
	if purpose == domain.KeyAccessAsymmetric {
		m, err := k.loadAsymmetric()
		if err != nil {
			return "", err
		}
		return m.keyID, nil
	}

	m, err := k.symmetric(purpose)
	if err != nil {
		return "", err
	}
	return m.keyID, nil
}

func (k *KeyStore) symmetric(purpose domain.KeyPurpose) (symmetricMaterial, error) {
	switch purpose {
	case domain.KeyAccessSymmetric:
		return k.loadAccessLocal()
	case domain.KeyRefreshSymmetric:
		return k.loadRefreshLocal()
	default:
		return symmetricMaterial{}, newError(ReasonKeyMaterial, "keystore.symmetric", "",
			fmt.Errorf("purpose %q has no symmetric key", purpose))
	}
}

// The loaders run inside sync.OnceValues with a background context: the
// first caller's deadline must not poison the process-lifetime key slots.

func loadAsymmetric(source keysource.Source) (asymmetricMaterial, error) {
	const op = "keystore.load"

	raw, err := source.Material(context.Background(), domain.KeyAccessAsymmetric)
	if err != nil {
		return asymmetricMaterial{}, newError(ReasonKeyInit, op, "", err)
	}

	seed, err := base64.StdEncoding.DecodeString(raw.Private)
	if err != nil {
		return asymmetricMaterial{}, newError(ReasonKeyMaterial, op, "",
			fmt.Errorf("decode signing seed: %w", err))
	}
	private, err := pasetov4.NewSigningKey(seed)
	if err != nil {
		return asymmetricMaterial{}, newError(ReasonKeyMaterial, op, "", err)
	}

	pub, err := base64.StdEncoding.DecodeString(raw.Public)
	if err != nil {
		return asymmetricMaterial{}, newError(ReasonKeyMaterial, op, "",
			fmt.Errorf("decode public key: %w", err))
	}
	public, err := pasetov4.NewVerificationKey(pub)
	if err != nil {
		return asymmetricMaterial{}, newError(ReasonKeyMaterial, op, "", err)
	}

	// The configured pair must actually correspond; catching a mismatch
	// here beats issuing tokens nothing can verify.
	if !public.Equal(private.Public()) {
		return asymmetricMaterial{}, newError(ReasonKeyMaterial, op, "",
			fmt.Errorf("public key does not match signing seed"))
	}

	return asymmetricMaterial{private: private, public: public, keyID: raw.KeyID}, nil
}

func loadSymmetric(source keysource.Source, purpose domain.KeyPurpose) (symmetricMaterial, error) {
	const op = "keystore.load"

	raw, err := source.Material(context.Background(), purpose)
	if err != nil {
		return symmetricMaterial{}, newError(ReasonKeyInit, op, "", err)
	}

	buf, err := base64.StdEncoding.DecodeString(raw.Private)
	if err != nil {
		return symmetricMaterial{}, newError(ReasonKeyMaterial, op, "",
			fmt.Errorf("decode %s key: %w", purpose, err))
	}
	key, err := pasetov4.NewLocalKey(buf)
	if err != nil {
		return symmetricMaterial{}, newError(ReasonKeyMaterial, op, "", err)
	}

	return symmetricMaterial{key: key, keyID: raw.KeyID}, nil
}
