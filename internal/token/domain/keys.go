package domain

// KeyPurpose names one of the three key slots the subsystem operates with.
type KeyPurpose string

const (
	// KeyAccessAsymmetric is the Ed25519 pair behind v4.public access tokens.
	KeyAccessAsymmetric KeyPurpose = "access_asymmetric"
	// KeyAccessSymmetric is the 32-byte key behind v4.local access tokens.
	KeyAccessSymmetric KeyPurpose = "access_symmetric"
	// KeyRefreshSymmetric is the 32-byte key behind v4.local refresh tokens.
	KeyRefreshSymmetric KeyPurpose = "refresh_symmetric"
)
