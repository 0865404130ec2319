package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/pkg/cryptox"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// AuthFlows composes the pipeline pieces into the three account-facing
// operations: login, refresh rotation, and logout.
type AuthFlows struct {
	Users     *UserService
	Builder   *ClaimsBuilder
	Codec     *TokenCodec
	Validator *TokenValidator
	Ledger    *RevocationLedger
	Store     store.Store

	AccessValidity time.Duration

	// PublicAccess selects v4.public access tokens (verifiable by other
	// services) over v4.local ones.
	PublicAccess bool
}

// Login authenticates the credentials and issues a fresh token pair.
func (f *AuthFlows) Login(ctx context.Context, username, password, deviceFingerprint string) (TokenPair, error) {
	user, err := f.Users.Authenticate(ctx, username, password)
	if err != nil {
		return TokenPair{}, err
	}
	return f.issuePair(ctx, user, deviceFingerprint)
}

// Refresh rotates a refresh token: the presented token and its record die,
// a new pair is issued. A refresh token can be spent exactly once; if
// issuance fails after the revoke the user falls back to login.
func (f *AuthFlows) Refresh(ctx context.Context, rawRefresh, deviceFingerprint string) (TokenPair, error) {
	claims, err := f.Validator.ValidateRefresh(ctx, rawRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	if err := f.retire(ctx, rawRefresh, claims, domain.RevokeReasonRotation); err != nil {
		return TokenPair{}, err
	}

	user, err := f.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}

	slogx.FromContext(ctx).Info("refresh token rotated",
		slog.String("user_id", user.ID), slog.String("old_jti", claims.TokenID))
	return f.issuePair(ctx, user, deviceFingerprint)
}

// Logout kills the presented refresh token and its record.
func (f *AuthFlows) Logout(ctx context.Context, rawRefresh string) error {
	claims, err := f.Validator.ValidateRefresh(ctx, rawRefresh)
	if err != nil {
		return err
	}
	return f.retire(ctx, rawRefresh, claims, domain.RevokeReasonLogout)
}

func (f *AuthFlows) issuePair(ctx context.Context, user domain.User, deviceFingerprint string) (TokenPair, error) {
	claims, err := f.Builder.AccessClaims(ctx, user.ID, f.AccessValidity)
	if err != nil {
		return TokenPair{}, err
	}

	var access string
	if f.PublicAccess {
		access, err = f.Codec.IssuePublicAccess(ctx, claims)
	} else {
		access, err = f.Codec.IssueLocalAccess(ctx, claims)
	}
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := f.Codec.IssueLocalRefresh(ctx, user, deviceFingerprint)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: claims.ExpiresAt,
	}, nil
}

// retire revokes both halves of a refresh token: the durable record (by
// fingerprint) and the jti in the ledger.
func (f *AuthFlows) retire(ctx context.Context, rawRefresh string, claims domain.TokenClaims, reason string) error {
	if err := f.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(rawRefresh)); err != nil {
		return err
	}
	return f.Ledger.Revoke(ctx, claims.TokenID, reason)
}
