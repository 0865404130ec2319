package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/pkg/idx"
)

// Clock abstracts time.Now so tests can drive the pipeline through expiry
// windows deterministically.
type Clock func() time.Time

// CallerContext resolves the identity of the request currently presenting
// or requesting a token: its session id and the subject it is bound to.
type CallerContext interface {
	SessionID(ctx context.Context) (string, error)
	Subject(ctx context.Context) (string, error)
}

// ScopeSource derives a subject's scope string (space-joined uppercase
// role names).
type ScopeSource interface {
	Scope(ctx context.Context, userID string) (string, error)
}

// ClaimsBuilder constructs claim sets for issuance. It is a pure function
// of its inputs and injected collaborators; no caching, no side effects
// beyond consuming one ULID per token.
type ClaimsBuilder struct {
	Issuer   string
	Audience string

	Clock  Clock
	Caller CallerContext
	Scopes ScopeSource
	Keys   *KeyStore
}

// AccessClaims builds the claim set for an access token bound to the
// caller's current session.
func (b *ClaimsBuilder) AccessClaims(ctx context.Context, userID string, validity time.Duration) (domain.TokenClaims, error) {
	const op = "claims.access"

	sid, err := b.Caller.SessionID(ctx)
	if err != nil {
		return domain.TokenClaims{}, newError(ReasonGeneration, op, "", err)
	}

	claims, err := b.build(ctx, op, userID, validity)
	if err != nil {
		return domain.TokenClaims{}, err
	}

	claims.SessionID = sid
	claims.Type = domain.TokenTypeAccess
	return claims, nil
}

// RefreshClaims builds the claim set for a refresh token. Refresh tokens
// carry no session binding; rotation outlives any one session.
func (b *ClaimsBuilder) RefreshClaims(ctx context.Context, userID string, validity time.Duration) (domain.TokenClaims, error) {
	claims, err := b.build(ctx, "claims.refresh", userID, validity)
	if err != nil {
		return domain.TokenClaims{}, err
	}

	claims.Type = domain.TokenTypeRefresh
	return claims, nil
}

// FooterClaims builds the unencrypted footer for a purpose, carrying the
// kid of the key that will produce the token.
func (b *ClaimsBuilder) FooterClaims(ctx context.Context, purpose domain.KeyPurpose) (domain.FooterClaims, error) {
	kid, err := b.Keys.KeyID(ctx, purpose)
	if err != nil {
		return domain.FooterClaims{}, err
	}
	return domain.FooterClaims{KeyID: kid}, nil
}

func (b *ClaimsBuilder) build(ctx context.Context, op, userID string, validity time.Duration) (domain.TokenClaims, error) {
	if validity <= 0 {
		// exp must land after iat; zero or negative validity can only
		// produce a dead-on-arrival token.
		return domain.TokenClaims{}, newError(ReasonGeneration, op, "",
			fmt.Errorf("validity must be positive, got %s", validity))
	}

	scope, err := b.Scopes.Scope(ctx, userID)
	if err != nil {
		return domain.TokenClaims{}, newError(ReasonGeneration, op, "", err)
	}

	now := b.Clock().UTC().Truncate(time.Second)

	return domain.TokenClaims{
		Issuer:    b.Issuer,
		Subject:   userID,
		Audience:  b.Audience,
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: now.Add(validity),
		TokenID:   idx.New().String(),
		Scope:     scope,
	}, nil
}
