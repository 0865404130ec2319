// Package tokensdk lets resource servers verify v4.public access tokens
// offline, holding nothing but the published Ed25519 key. It checks the
// signature, key id, token type, timing, and issuer/audience binding.
//
// Revocation, session binding, and scope-against-current-roles checks need
// the issuing service's state and are deliberately not part of this SDK;
// treat its answer as "was genuinely issued and is not stale", not "is
// still welcome".
package tokensdk

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/shopauth/pkg/pasetov4"
)

// ErrInvalidToken is returned for every verification failure. The wrapped
// detail is for logs, not for callers to branch on.
var ErrInvalidToken = errors.New("tokensdk: invalid token")

// DefaultClockSkew mirrors the issuing service's timing tolerance.
const DefaultClockSkew = 30 * time.Second

// Claims is the verified access token payload.
type Claims struct {
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	Audience  string    `json:"aud"`
	IssuedAt  time.Time `json:"iat"`
	NotBefore time.Time `json:"nbf"`
	ExpiresAt time.Time `json:"exp"`
	TokenID   string    `json:"jti"`
	SessionID string    `json:"sid,omitempty"`
	Scope     string    `json:"scope"`
	Type      string    `json:"type"`
}

type footer struct {
	KeyID string `json:"kid"`
}

// Verifier checks v4.public access tokens against one published key.
// Safe for concurrent use.
type Verifier struct {
	Issuer    string
	Audience  string
	KeyID     string
	ClockSkew time.Duration
	Clock     func() time.Time

	key ed25519.PublicKey
}

// New builds a Verifier from the base64 (std, padded) public key the
// issuing service publishes.
func New(publicKeyB64, keyID, issuer, audience string) (*Verifier, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("tokensdk: decode public key: %w", err)
	}
	key, err := pasetov4.NewVerificationKey(raw)
	if err != nil {
		return nil, fmt.Errorf("tokensdk: %w", err)
	}

	return &Verifier{
		Issuer:    issuer,
		Audience:  audience,
		KeyID:     keyID,
		ClockSkew: DefaultClockSkew,
		key:       key,
	}, nil
}

// Verify checks raw and returns its claims.
func (v *Verifier) Verify(raw string) (Claims, error) {
	payload, footerBytes, err := pasetov4.Verify(v.key, raw, nil)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var ft footer
	if err := json.Unmarshal(footerBytes, &ft); err != nil {
		return Claims{}, fmt.Errorf("%w: unparseable footer", ErrInvalidToken)
	}
	if ft.KeyID != v.KeyID {
		return Claims{}, fmt.Errorf("%w: unknown key id %q", ErrInvalidToken, ft.KeyID)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: unparseable claims", ErrInvalidToken)
	}

	if claims.Type != "ACCESS_TOKEN" {
		return Claims{}, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}

	now := time.Now().UTC()
	if v.Clock != nil {
		now = v.Clock().UTC()
	}
	skew := v.ClockSkew
	switch {
	case now.After(claims.ExpiresAt.Add(skew)):
		return Claims{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	case now.Add(skew).Before(claims.NotBefore):
		return Claims{}, fmt.Errorf("%w: not yet valid", ErrInvalidToken)
	case claims.IssuedAt.After(now.Add(skew)):
		return Claims{}, fmt.Errorf("%w: issued in the future", ErrInvalidToken)
	}

	if claims.Issuer != v.Issuer {
		return Claims{}, fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	if claims.Audience != v.Audience {
		return Claims{}, fmt.Errorf("%w: wrong audience", ErrInvalidToken)
	}

	return claims, nil
}

// HasScope reports whether the verified claims carry a scope entry.
func (c Claims) HasScope(required string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == required {
			return true
		}
	}
	return false
}
