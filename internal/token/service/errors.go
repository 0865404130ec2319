package service

import (
	"errors"
	"fmt"
)

// Reason discriminates why a token operation failed. One tagged error type
// carries the whole taxonomy; callers switch on the reason instead of a
// hierarchy of error types.
type Reason string

const (
	// Key lifecycle
	ReasonKeyInit     Reason = "key_init"     // one-time key load failed; fatal until config is fixed
	ReasonKeyMaterial Reason = "key_material" // key material present but malformed

	// Issuance
	ReasonGeneration Reason = "generation" // serialization or crypto failure while issuing
	ReasonOversized  Reason = "oversized"  // claims payload exceeds the byte ceiling

	// Validation gates, in pipeline order
	ReasonRateLimited     Reason = "rate_limited"
	ReasonMalformed       Reason = "malformed"
	ReasonCryptoInvalid   Reason = "crypto_invalid"
	ReasonClaimsParse     Reason = "claims_parse"
	ReasonKeyIDMismatch   Reason = "key_id_mismatch"
	ReasonClaimsMissing   Reason = "claims_missing"
	ReasonWrongType       Reason = "wrong_type"
	ReasonExpired         Reason = "expired"
	ReasonNotYetValid     Reason = "not_yet_valid"
	ReasonIssuedInFuture  Reason = "issued_in_future"
	ReasonIssuerMismatch  Reason = "issuer_mismatch"
	ReasonAudience        Reason = "audience_mismatch"
	ReasonSubjectMismatch Reason = "subject_mismatch"
	ReasonSessionMismatch Reason = "session_mismatch"
	ReasonRevoked         Reason = "revoked"
	ReasonUserDisabled    Reason = "user_disabled"
	ReasonScope           Reason = "insufficient_scope"

	// Revocation ledger
	ReasonRevocationStore Reason = "revocation_store"
)

// Error is the single error type of the token pipeline. TokenID is set when
// the failing token's jti was extractable.
type Error struct {
	Reason  Reason
	Op      string
	TokenID string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Reason)
	if e.TokenID != "" {
		msg += " (jti " + e.TokenID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(reason Reason, op, tokenID string, err error) *Error {
	return &Error{Reason: reason, Op: op, TokenID: tokenID, Err: err}
}

// IsReason reports whether err is a pipeline Error with the given reason.
func IsReason(err error, reason Reason) bool {
	var e *Error
	return errors.As(err, &e) && e.Reason == reason
}

// ErrUnauthenticated is the only failure shape exposed at the API boundary.
// Specific reasons stay in logs and metrics so the pipeline cannot be used
// as an oracle.
var ErrUnauthenticated = errors.New("unauthenticated")

// Unauthenticated collapses any pipeline error to the boundary error.
// Returns nil for nil.
func Unauthenticated(err error) error {
	if err == nil {
		return nil
	}
	return ErrUnauthenticated
}
