package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/pkg/cryptox"
	"github.com/ledgerline/shopauth/pkg/pasetov4"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

// MaxClaimsBytes caps the serialized claims payload. Checked before any
// crypto at issuance and again at validation so neither side wastes work
// on oversized input.
const MaxClaimsBytes = 2048

// TokenCodec turns claim sets into wire tokens. The refresh path
// additionally persists a hashed record; the raw refresh token is returned
// once and never stored.
type TokenCodec struct {
	Keys          *KeyStore
	Claims        *ClaimsBuilder
	RefreshTokens store.RefreshTokens
	Metrics       metrics.Recorder

	// RefreshValidity bounds refresh tokens issued by IssueLocalRefresh.
	RefreshValidity time.Duration
}

// IssuePublicAccess signs an access claim set into a v4.public token that
// other services can verify with the published key.
func (c *TokenCodec) IssuePublicAccess(ctx context.Context, claims domain.TokenClaims) (string, error) {
	const op = "codec.issue_public_access"

	payload, footer, err := c.encodeParts(ctx, op, claims, domain.KeyAccessAsymmetric)
	if err != nil {
		return "", err
	}

	key, err := c.Keys.SigningKey(ctx)
	if err != nil {
		return "", err
	}

	token, err := pasetov4.Sign(key, payload, footer, nil)
	if err != nil {
		return "", newError(ReasonGeneration, op, claims.TokenID, err)
	}

	c.Metrics.TokenIssued(string(claims.Type), string(pasetov4.PurposePublic))
	return token, nil
}

// IssueLocalAccess encrypts an access claim set into a v4.local token for
// intra-service use.
func (c *TokenCodec) IssueLocalAccess(ctx context.Context, claims domain.TokenClaims) (string, error) {
	const op = "codec.issue_local_access"

	payload, footer, err := c.encodeParts(ctx, op, claims, domain.KeyAccessSymmetric)
	if err != nil {
		return "", err
	}

	key, err := c.Keys.SymmetricKey(ctx, domain.KeyAccessSymmetric)
	if err != nil {
		return "", err
	}

	token, err := pasetov4.Encrypt(key, payload, footer, nil)
	if err != nil {
		return "", newError(ReasonGeneration, op, claims.TokenID, err)
	}

	c.Metrics.TokenIssued(string(claims.Type), string(pasetov4.PurposeLocal))
	return token, nil
}

// IssueLocalRefresh builds refresh claims for the user, encrypts them, and
// persists a RefreshTokenRecord keyed by the wire token's SHA-256
// fingerprint. Possession of the raw token is the only proof of validity.
func (c *TokenCodec) IssueLocalRefresh(ctx context.Context, user domain.User, deviceFingerprint string) (string, error) {
	const op = "codec.issue_local_refresh"
	log := slogx.FromContext(ctx)

	claims, err := c.Claims.RefreshClaims(ctx, user.ID, c.RefreshValidity)
	if err != nil {
		return "", err
	}

	payload, footer, err := c.encodeParts(ctx, op, claims, domain.KeyRefreshSymmetric)
	if err != nil {
		return "", err
	}

	key, err := c.Keys.SymmetricKey(ctx, domain.KeyRefreshSymmetric)
	if err != nil {
		return "", err
	}

	token, err := pasetov4.Encrypt(key, payload, footer, nil)
	if err != nil {
		return "", newError(ReasonGeneration, op, claims.TokenID, err)
	}

	record := domain.RefreshTokenRecord{
		TokenHash:         cryptox.FingerprintToken(token),
		UserID:            user.ID,
		ExpiresAt:         claims.ExpiresAt,
		DeviceFingerprint: deviceFingerprint,
	}
	if err := c.RefreshTokens.CreateRefreshToken(ctx, record); err != nil {
		// An unrecorded refresh token could never be rotated or revoked
		// per-device, so issuance fails with it.
		return "", newError(ReasonGeneration, op, claims.TokenID,
			fmt.Errorf("persist refresh record: %w", err))
	}

	log.Debug("refresh token issued",
		slog.String("user_id", user.ID),
		slog.String("jti", claims.TokenID),
	)

	c.Metrics.TokenIssued(string(claims.Type), string(pasetov4.PurposeLocal))
	return token, nil
}

// encodeParts serializes the claims and footer, enforcing the payload
// ceiling before any cryptographic work.
func (c *TokenCodec) encodeParts(
	ctx context.Context,
	op string,
	claims domain.TokenClaims,
	purpose domain.KeyPurpose,
) (payload, footer []byte, err error) {
	payload, err = json.Marshal(claims)
	if err != nil {
		return nil, nil, newError(ReasonGeneration, op, claims.TokenID, err)
	}
	if len(payload) > MaxClaimsBytes {
		return nil, nil, newError(ReasonOversized, op, claims.TokenID,
			fmt.Errorf("claims payload is %d bytes, ceiling is %d", len(payload), MaxClaimsBytes))
	}

	fc, err := c.Claims.FooterClaims(ctx, purpose)
	if err != nil {
		return nil, nil, err
	}
	footer, err = json.Marshal(fc)
	if err != nil {
		return nil, nil, newError(ReasonGeneration, op, claims.TokenID, err)
	}

	return payload, footer, nil
}
