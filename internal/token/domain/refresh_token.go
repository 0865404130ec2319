package domain

import "time"

// RefreshTokenRecord models the stored refresh token row. Only the SHA-256
// fingerprint of the wire token is persisted; the raw token exists solely in
// the response that delivered it.
type RefreshTokenRecord struct {
	TokenHash         string // deterministic fingerprint (base64url SHA-256)
	UserID            string
	ExpiresAt         time.Time
	DeviceFingerprint string
	Revoked           bool
	CreatedAt         time.Time
}
