package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/pkg/cryptox"
	"github.com/ledgerline/shopauth/pkg/limitx"
	"github.com/ledgerline/shopauth/pkg/pasetov4"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

// DefaultClockSkew absorbs clock drift between issuer and verifier when
// comparing exp, nbf, and iat.
const DefaultClockSkew = 30 * time.Second

// requiredClaims must all be present in any token payload. Access tokens
// additionally require sid.
var requiredClaims = []string{"iss", "sub", "aud", "exp", "nbf", "iat", "jti", "scope", "type"}

// TokenValidator runs the sequential validation pipeline. Failures are
// fail-secure: anomalies that prove the token was once genuine but is now
// wrong (missing claims through session mismatch) revoke the token as a
// side effect so it cannot be retried elsewhere.
type TokenValidator struct {
	Keys          *KeyStore
	Ledger        *RevocationLedger
	Users         store.Users
	RefreshTokens store.RefreshTokens
	Caller        CallerContext
	Limiter       *limitx.Limiter
	Metrics       metrics.Recorder
	Clock         Clock

	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// ValidatePublicAccess validates a v4.public access token.
func (v *TokenValidator) ValidatePublicAccess(ctx context.Context, raw string) (domain.TokenClaims, error) {
	return v.validate(ctx, "validator.public_access", raw, pasetov4.PurposePublic, domain.TokenTypeAccess)
}

// ValidateLocalAccess validates a v4.local access token.
func (v *TokenValidator) ValidateLocalAccess(ctx context.Context, raw string) (domain.TokenClaims, error) {
	return v.validate(ctx, "validator.local_access", raw, pasetov4.PurposeLocal, domain.TokenTypeAccess)
}

// ValidateRefresh validates a v4.local refresh token, including its
// durable record.
func (v *TokenValidator) ValidateRefresh(ctx context.Context, raw string) (domain.TokenClaims, error) {
	const op = "validator.refresh"

	claims, err := v.validate(ctx, op, raw, pasetov4.PurposeLocal, domain.TokenTypeRefresh)
	if err != nil {
		return domain.TokenClaims{}, err
	}

	// The wire token must still map to a live refresh record; a missing or
	// revoked record means the token was rotated away or the user logged
	// out everywhere.
	rec, err := v.RefreshTokens.GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenClaims{}, newError(ReasonRevoked, op, claims.TokenID,
				fmt.Errorf("no refresh record"))
		}
		return domain.TokenClaims{}, newError(ReasonRevoked, op, claims.TokenID, err)
	}
	if rec.Revoked {
		return domain.TokenClaims{}, newError(ReasonRevoked, op, claims.TokenID, nil)
	}
	if rec.UserID != claims.Subject {
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonSubjectMismatch, op, claims.TokenID,
			fmt.Errorf("refresh record bound to different subject"))
	}

	return claims, nil
}

// IsAccessTokenValid is a boolean convenience that dispatches on the
// token's purpose marker and discards the error detail.
func (v *TokenValidator) IsAccessTokenValid(ctx context.Context, raw string) bool {
	purpose, _, _, err := pasetov4.Split(raw)
	if err != nil {
		return false
	}

	if purpose == pasetov4.PurposePublic {
		_, err = v.ValidatePublicAccess(ctx, raw)
	} else {
		_, err = v.ValidateLocalAccess(ctx, raw)
	}
	return err == nil
}

// validate is the pipeline. Each numbered gate short-circuits on failure;
// gates 7 through 11 also revoke the offending jti.
func (v *TokenValidator) validate(
	ctx context.Context,
	op, raw string,
	purpose pasetov4.Purpose,
	expectedType domain.TokenType,
) (claims domain.TokenClaims, err error) {
	start := v.now()
	defer func() {
		v.Metrics.ValidationDuration(string(expectedType), v.now().Sub(start))
		v.Metrics.TokenValidated(string(expectedType), outcomeOf(err))
		if err != nil {
			v.logFailure(ctx, op, err)
		}
	}()

	// 1. Rate gate: keyed by token identity, before any crypto.
	if v.Limiter != nil && !v.Limiter.Allow(cryptox.FingerprintToken(raw)) {
		return domain.TokenClaims{}, newError(ReasonRateLimited, op, "", nil)
	}

	// 2. Structural gate: length bounds, four segments, expected purpose.
	gotPurpose, _, _, err := pasetov4.Split(raw)
	if err != nil {
		return domain.TokenClaims{}, newError(ReasonMalformed, op, "", err)
	}
	if gotPurpose != purpose {
		return domain.TokenClaims{}, newError(ReasonMalformed, op, "",
			fmt.Errorf("expected v4.%s token, got v4.%s", purpose, gotPurpose))
	}

	// 3. Cryptographic gate: verify or decrypt.
	payload, footer, err := v.open(ctx, raw, purpose, expectedType)
	if err != nil {
		return domain.TokenClaims{}, err
	}

	// 4. Claims-parse gate.
	var rawClaims map[string]json.RawMessage
	if err := json.Unmarshal(payload, &rawClaims); err != nil {
		return domain.TokenClaims{}, newError(ReasonClaimsParse, op, "", err)
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return domain.TokenClaims{}, newError(ReasonClaimsParse, op, "", err)
	}

	// 5. Key-id gate: footer kid must match the configured kid for this
	// purpose regardless of the crypto outcome, defending against
	// key-rotation confusion.
	if err := v.checkKeyID(ctx, op, footer, expectedType, purpose, claims.TokenID); err != nil {
		return domain.TokenClaims{}, err
	}

	// 6. Size gate.
	if len(payload) > MaxClaimsBytes {
		return domain.TokenClaims{}, newError(ReasonOversized, op, claims.TokenID,
			fmt.Errorf("claims payload is %d bytes, ceiling is %d", len(payload), MaxClaimsBytes))
	}

	// 7. Metadata gate: every required claim key present. A genuine-but-
	// incomplete token is anomalous, so it gets revoked.
	required := requiredClaims
	if expectedType == domain.TokenTypeAccess {
		required = append(append([]string{}, requiredClaims...), "sid")
	}
	for _, key := range required {
		if _, ok := rawClaims[key]; !ok {
			v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
			return domain.TokenClaims{}, newError(ReasonClaimsMissing, op, claims.TokenID,
				fmt.Errorf("missing claim %q", key))
		}
	}

	// 8. Type gate: defends against access/refresh confusion.
	if claims.Type != expectedType {
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonWrongType, op, claims.TokenID,
			fmt.Errorf("expected %s, got %s", expectedType, claims.Type))
	}

	// 9. Timing gate: expiry in the past, or nbf/iat in the future beyond
	// skew (possible replay), both revoke.
	now := v.now()
	skew := v.skew()
	switch {
	case claims.Expired(now, skew):
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonExpired, op, claims.TokenID, nil)
	case claims.NotYetValid(now, skew):
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonNotYetValid, op, claims.TokenID, nil)
	case claims.IssuedInFuture(now, skew):
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonIssuedInFuture, op, claims.TokenID, nil)
	}

	// 10. Identity gate: issuer, audience, and subject binding.
	if claims.Issuer != v.Issuer {
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonIssuerMismatch, op, claims.TokenID, nil)
	}
	if claims.Audience != v.Audience {
		v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
		return domain.TokenClaims{}, newError(ReasonAudience, op, claims.TokenID, nil)
	}
	if expectedType == domain.TokenTypeAccess {
		subject, err := v.Caller.Subject(ctx)
		if err != nil {
			return domain.TokenClaims{}, newError(ReasonSubjectMismatch, op, claims.TokenID, err)
		}
		if subject != "" && subject != claims.Subject {
			v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonValidationFail)
			return domain.TokenClaims{}, newError(ReasonSubjectMismatch, op, claims.TokenID, nil)
		}

		// 11. Session-binding gate: a token presented outside the session
		// it was issued under is treated as exfiltrated.
		sid, err := v.Caller.SessionID(ctx)
		if err != nil {
			return domain.TokenClaims{}, newError(ReasonSessionMismatch, op, claims.TokenID, err)
		}
		if claims.SessionID != sid {
			v.revokeSuspect(ctx, claims.TokenID, domain.RevokeReasonSessionMismatch)
			return domain.TokenClaims{}, newError(ReasonSessionMismatch, op, claims.TokenID, nil)
		}
	}

	// 12. Revocation gate.
	if err := v.Ledger.ValidateNotRevoked(ctx, claims); err != nil {
		return domain.TokenClaims{}, err
	}

	// 13. User/scope gate: subject must resolve to an enabled user whose
	// current roles still cover the claimed scope.
	user, err := v.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenClaims{}, newError(ReasonSubjectMismatch, op, claims.TokenID,
				fmt.Errorf("unknown subject"))
		}
		return domain.TokenClaims{}, newError(ReasonSubjectMismatch, op, claims.TokenID, err)
	}
	if !user.Enabled {
		return domain.TokenClaims{}, newError(ReasonUserDisabled, op, claims.TokenID, nil)
	}
	for _, scope := range strings.Fields(claims.Scope) {
		if !user.HasScope(scope) {
			return domain.TokenClaims{}, newError(ReasonScope, op, claims.TokenID,
				fmt.Errorf("scope %q no longer granted", scope))
		}
	}

	return claims, nil
}

// open runs the cryptographic gate for the token's purpose.
func (v *TokenValidator) open(
	ctx context.Context,
	raw string,
	purpose pasetov4.Purpose,
	expectedType domain.TokenType,
) (payload, footer []byte, err error) {
	const op = "validator.open"

	if purpose == pasetov4.PurposePublic {
		key, err := v.Keys.VerificationKey(ctx)
		if err != nil {
			return nil, nil, err
		}
		payload, footer, err = pasetov4.Verify(key, raw, nil)
		if err != nil {
			return nil, nil, newError(ReasonCryptoInvalid, op, "", err)
		}
		return payload, footer, nil
	}

	key, err := v.Keys.SymmetricKey(ctx, localPurposeFor(expectedType))
	if err != nil {
		return nil, nil, err
	}
	payload, footer, err = pasetov4.Decrypt(key, raw, nil)
	if err != nil {
		return nil, nil, newError(ReasonCryptoInvalid, op, "", err)
	}
	return payload, footer, nil
}

func (v *TokenValidator) checkKeyID(
	ctx context.Context,
	op string,
	footer []byte,
	expectedType domain.TokenType,
	purpose pasetov4.Purpose,
	tokenID string,
) error {
	var fc domain.FooterClaims
	if err := json.Unmarshal(footer, &fc); err != nil {
		return newError(ReasonKeyIDMismatch, op, tokenID, fmt.Errorf("unparseable footer: %w", err))
	}

	keyPurpose := localPurposeFor(expectedType)
	if purpose == pasetov4.PurposePublic {
		keyPurpose = domain.KeyAccessAsymmetric
	}

	kid, err := v.Keys.KeyID(ctx, keyPurpose)
	if err != nil {
		return err
	}
	if fc.KeyID != kid {
		return newError(ReasonKeyIDMismatch, op, tokenID,
			fmt.Errorf("footer kid %q, configured %q", fc.KeyID, kid))
	}
	return nil
}

// revokeSuspect is the fail-secure side effect: best effort, never masks
// the original validation error.
func (v *TokenValidator) revokeSuspect(ctx context.Context, tokenID, reason string) {
	if tokenID == "" {
		return
	}
	if err := v.Ledger.Revoke(ctx, tokenID, reason); err != nil {
		slogx.FromContext(ctx).Warn("best-effort revoke failed",
			slog.String("jti", tokenID), slog.Any("error", err))
	}
}

func (v *TokenValidator) logFailure(ctx context.Context, op string, err error) {
	var e *Error
	if errors.As(err, &e) {
		slogx.FromContext(ctx).Info("token rejected",
			slog.String("op", op),
			slog.String("reason", string(e.Reason)),
			slog.String("jti", e.TokenID),
		)
		return
	}
	slogx.FromContext(ctx).Warn("token validation error", slog.String("op", op), slog.Any("error", err))
}

func (v *TokenValidator) now() time.Time {
	if v.Clock != nil {
		return v.Clock().UTC()
	}
	return time.Now().UTC()
}

func (v *TokenValidator) skew() time.Duration {
	if v.ClockSkew > 0 {
		return v.ClockSkew
	}
	return DefaultClockSkew
}

func localPurposeFor(t domain.TokenType) domain.KeyPurpose {
	if t == domain.TokenTypeRefresh {
		return domain.KeyRefreshSymmetric
	}
	return domain.KeyAccessSymmetric
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsReason(err, ReasonRevoked):
		return metrics.OutcomeRevoked
	case IsReason(err, ReasonRevocationStore), IsReason(err, ReasonKeyInit):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeInvalid
	}
}
