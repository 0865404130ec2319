package keysource

import (
	"context"
	"fmt"
	"os"

	"github.com/ledgerline/shopauth/internal/token/domain"
)

// Environment variables read by EnvSource.
const (
	EnvAccessSigningSeed = "AUTH_ACCESS_SIGNING_SEED"
	EnvAccessPublicKey   = "AUTH_ACCESS_PUBLIC_KEY"
	EnvAccessAsymKeyID   = "AUTH_ACCESS_ASYM_KID"

	EnvAccessLocalKey   = "AUTH_ACCESS_LOCAL_KEY"
	EnvAccessLocalKeyID = "AUTH_ACCESS_LOCAL_KID"

	EnvRefreshLocalKey   = "AUTH_REFRESH_LOCAL_KEY"
	EnvRefreshLocalKeyID = "AUTH_REFRESH_LOCAL_KID"
)

// EnvSource pulls key material from process environment variables, the
// same way the rest of the service is configured.
type EnvSource struct{}

func NewEnvSource() EnvSource { return EnvSource{} }

func (EnvSource) Material(ctx context.Context, purpose domain.KeyPurpose) (Material, error) {
	switch purpose {
	case domain.KeyAccessAsymmetric:
		return envMaterial(EnvAccessAsymKeyID, EnvAccessSigningSeed, EnvAccessPublicKey)
	case domain.KeyAccessSymmetric:
		return envMaterial(EnvAccessLocalKeyID, EnvAccessLocalKey, "")
	case domain.KeyRefreshSymmetric:
		return envMaterial(EnvRefreshLocalKeyID, EnvRefreshLocalKey, "")
	default:
		return Material{}, fmt.Errorf("%w: unknown purpose %q", ErrMissingMaterial, purpose)
	}
}

func envMaterial(kidVar, privateVar, publicVar string) (Material, error) {
	m := Material{
		KeyID:   os.Getenv(kidVar),
		Private: os.Getenv(privateVar),
	}
	if publicVar != "" {
		m.Public = os.Getenv(publicVar)
	}

	if m.KeyID == "" {
		return Material{}, fmt.Errorf("%w: %s not set", ErrMissingMaterial, kidVar)
	}
	if m.Private == "" {
		return Material{}, fmt.Errorf("%w: %s not set", ErrMissingMaterial, privateVar)
	}
	if publicVar != "" && m.Public == "" {
		return Material{}, fmt.Errorf("%w: %s not set", ErrMissingMaterial, publicVar)
	}
	return m, nil
}

// StaticSource serves fixed material, mainly for tests and embedded use.
type StaticSource map[domain.KeyPurpose]Material

func (s StaticSource) Material(ctx context.Context, purpose domain.KeyPurpose) (Material, error) {
	m, ok := s[purpose]
	if !ok {
		return Material{}, fmt.Errorf("%w: no material for purpose %q", ErrMissingMaterial, purpose)
	}
	return m, nil
}
