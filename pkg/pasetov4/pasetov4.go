// Package pasetov4 implements the PASETO v4 wire primitives used by the
// token subsystem: v4.public (Ed25519 signed) and v4.local (XChaCha20 +
// BLAKE2b-MAC encrypted) tokens with an optional unencrypted footer.
//
// Tokens are four dot-separated segments:
//
//	v4.<purpose>.<base64url body>.<base64url footer>
//
// The package deals in raw payload/footer bytes only. Claim semantics,
// revocation, and validation policy live in the service layer.
package pasetov4

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	headerPublic = "v4.public."
	headerLocal  = "v4.local."

	// MaxTokenSize bounds encoded tokens to prevent resource exhaustion
	// before any decoding work happens.
	MaxTokenSize = 8192
)

var (
	// ErrTokenFormat reports a token that is not structurally a v4 token:
	// wrong segment count, wrong header, bad base64, or oversized input.
	ErrTokenFormat = errors.New("pasetov4: malformed token")

	// ErrInvalidSignature reports an Ed25519 verification failure on a
	// v4.public token.
	ErrInvalidSignature = errors.New("pasetov4: invalid signature")

	// ErrDecryptFailed reports a MAC or decryption failure on a v4.local
	// token.
	ErrDecryptFailed = errors.New("pasetov4: decryption failed")

	// ErrInvalidKey reports key material of the wrong shape.
	ErrInvalidKey = errors.New("pasetov4: invalid key material")
)

// Purpose identifies which v4 mode produced a token.
type Purpose string

const (
	PurposePublic Purpose = "public"
	PurposeLocal  Purpose = "local"
)

// Split separates a candidate token into its purpose, body segment, and
// footer bytes. It enforces the four-segment structure and size bound but
// performs no cryptography; callers gate on it before touching keys.
func Split(raw string) (purpose Purpose, body []byte, footer []byte, err error) {
	if len(raw) == 0 || len(raw) > MaxTokenSize {
		return "", nil, nil, ErrTokenFormat
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 4 || parts[0] != "v4" {
		return "", nil, nil, ErrTokenFormat
	}

	switch parts[1] {
	case string(PurposePublic):
		purpose = PurposePublic
	case string(PurposeLocal):
		purpose = PurposeLocal
	default:
		return "", nil, nil, ErrTokenFormat
	}

	body, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", nil, nil, ErrTokenFormat
	}

	footer, err = base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return "", nil, nil, ErrTokenFormat
	}

	return purpose, body, footer, nil
}

func encode(header string, body, footer []byte) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(base64.RawURLEncoding.EncodeToString(body))
	b.WriteByte('.')
	b.WriteString(base64.RawURLEncoding.EncodeToString(footer))
	return b.String()
}
