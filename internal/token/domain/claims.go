package domain

import "time"

// TokenType discriminates access tokens from refresh tokens inside the
// claims payload, preventing cross-type replay.
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS_TOKEN"
	TokenTypeRefresh TokenType = "REFRESH_TOKEN"
)

// TokenClaims is the claim set carried in a PASETO payload. Time fields are
// normalized to UTC with second precision at build time so they serialize
// as RFC 3339 strings ("2026-01-01T00:00:00Z"). Claims are treated as
// immutable after construction.
type TokenClaims struct {
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	Audience  string    `json:"aud"`
	IssuedAt  time.Time `json:"iat"`
	NotBefore time.Time `json:"nbf"`
	ExpiresAt time.Time `json:"exp"`
	TokenID   string    `json:"jti"`
	SessionID string    `json:"sid,omitempty"`
	Scope     string    `json:"scope"`
	Type      TokenType `json:"type"`
}

// Expired reports whether the token is past its expiry, allowing skew.
func (c TokenClaims) Expired(now time.Time, skew time.Duration) bool {
	return now.After(c.ExpiresAt.Add(skew))
}

// NotYetValid reports whether the token's nbf is still in the future,
// allowing skew.
func (c TokenClaims) NotYetValid(now time.Time, skew time.Duration) bool {
	return now.Add(skew).Before(c.NotBefore)
}

// IssuedInFuture reports whether iat lies beyond now plus skew, which marks
// the token as forged or the issuer clock as broken.
func (c TokenClaims) IssuedInFuture(now time.Time, skew time.Duration) bool {
	return c.IssuedAt.After(now.Add(skew))
}

// FooterClaims is the unencrypted PASETO footer. Only the key id lives
// here; everything else belongs in the protected payload.
type FooterClaims struct {
	KeyID string `json:"kid"`
}

// CachedTokenData is the derived validation result held by the metadata
// cache. It is discardable; correctness never depends on it.
type CachedTokenData struct {
	RawToken  string
	Claims    TokenClaims
	ExpiresAt time.Time
}
