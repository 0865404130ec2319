// Package keysource abstracts where key material comes from. The service
// layer only ever sees base64 strings plus a key id per purpose; swapping
// env vars for a secrets manager later means adding a driver here.
package keysource

import (
	"context"
	"errors"

	"github.com/ledgerline/shopauth/internal/token/domain"
)

// ErrMissingMaterial reports that a purpose has no configured key.
var ErrMissingMaterial = errors.New("keysource: missing key material")

// Material is the raw configuration for one key purpose. Private holds the
// base64 (std, padded) Ed25519 seed for the asymmetric purpose or the
// 32-byte symmetric key otherwise. Public is only set for the asymmetric
// purpose.
type Material struct {
	KeyID   string
	Private string
	Public  string
}

// Source yields key material per purpose. Implementations must be safe for
// concurrent use; the key store calls them exactly once per process.
type Source interface {
	Material(ctx context.Context, purpose domain.KeyPurpose) (Material, error)
}
