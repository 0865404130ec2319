package domain

import "time"

// RevocationRecord marks a token id as permanently dead. Records are
// append-only with at most one row per token id; housekeeping deletes them
// once they age past the retention window.
type RevocationRecord struct {
	TokenID   string
	RevokedAt time.Time
	Reason    string
}

// Revocation reasons recorded alongside the tombstone.
const (
	RevokeReasonLogout          = "logout"
	RevokeReasonRotation        = "rotation"
	RevokeReasonSessionMismatch = "session_mismatch"
	RevokeReasonValidationFail  = "validation_failure"
	RevokeReasonAdmin           = "admin"
)
