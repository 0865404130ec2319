package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/stretchr/testify/require"
)

func TestTokenClaimsJSONTimes(t *testing.T) {
	iat := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	claims := domain.TokenClaims{
		Issuer:    "shopauth",
		Subject:   "u42",
		Audience:  "shop-api",
		IssuedAt:  iat,
		NotBefore: iat,
		ExpiresAt: iat.Add(15 * time.Minute),
		TokenID:   "01JABCDEF0123456789ABCDEFG",
		SessionID: "01JSESSION0123456789ABCDEF",
		Scope:     "USER",
		Type:      domain.TokenTypeAccess,
	}

	raw, err := json.Marshal(claims)
	require.NoError(t, err)

	// Registered time claims serialize as RFC 3339 UTC strings.
	require.Contains(t, string(raw), `"iat":"2026-08-25T10:00:00Z"`)
	require.Contains(t, string(raw), `"exp":"2026-08-25T10:15:00Z"`)

	var parsed domain.TokenClaims
	require.NoError(t, json.Unmarshal(raw, &parsed))
	require.True(t, parsed.IssuedAt.Equal(iat))
	require.Equal(t, claims.TokenID, parsed.TokenID)
	require.Equal(t, domain.TokenTypeAccess, parsed.Type)
}

func TestTokenClaimsTiming(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	skew := 30 * time.Second

	t.Run("live token", func(t *testing.T) {
		c := domain.TokenClaims{
			IssuedAt:  now.Add(-time.Minute),
			NotBefore: now.Add(-time.Minute),
			ExpiresAt: now.Add(time.Minute),
		}
		require.False(t, c.Expired(now, skew))
		require.False(t, c.NotYetValid(now, skew))
		require.False(t, c.IssuedInFuture(now, skew))
	})

	t.Run("expired beyond skew", func(t *testing.T) {
		c := domain.TokenClaims{ExpiresAt: now.Add(-time.Minute)}
		require.True(t, c.Expired(now, skew))
	})

	t.Run("expired within skew still accepted", func(t *testing.T) {
		c := domain.TokenClaims{ExpiresAt: now.Add(-10 * time.Second)}
		require.False(t, c.Expired(now, skew))
	})

	t.Run("nbf in future", func(t *testing.T) {
		c := domain.TokenClaims{NotBefore: now.Add(time.Minute)}
		require.True(t, c.NotYetValid(now, skew))
	})

	t.Run("iat in future", func(t *testing.T) {
		c := domain.TokenClaims{IssuedAt: now.Add(time.Minute)}
		require.True(t, c.IssuedInFuture(now, skew))
	})
}

func TestUserScope(t *testing.T) {
	t.Run("uppercases and joins", func(t *testing.T) {
		u := domain.User{Roles: []string{"user", "Admin"}}
		require.Equal(t, "USER ADMIN", u.Scope())
	})

	t.Run("no roles", func(t *testing.T) {
		require.Equal(t, "", domain.User{}.Scope())
	})

	t.Run("has scope", func(t *testing.T) {
		u := domain.User{Roles: []string{"user"}}
		require.True(t, u.HasScope("USER"))
		require.True(t, u.HasScope("user"))
		require.False(t, u.HasScope("ADMIN"))
	})
}
