package store

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. It exposes sub-repositories to keep concerns tidy
// and testable, and to actively stop people from accidentally doing
// transactions within transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RevokedTokens() RevokedTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the
	// returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername returns a user by their unique username.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetEnabled flips the enabled flag and bumps updated_at.
	SetEnabled(ctx context.Context, userID string, enabled bool) error

	// DeleteUser cascades to refresh_tokens (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshTokenRecord) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshTokenRecord, error)

	// RevokeRefreshToken flips revoked=1 for one token.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g.,
	// password reset or account disable).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens removes rows whose expiry lies before now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type RevokedTokens interface {
	// CreateRevocation inserts a tombstone for a token id. Inserting an
	// already-revoked id is a no-op (INSERT OR IGNORE); the first record
	// wins and is never overwritten.
	CreateRevocation(ctx context.Context, rec domain.RevocationRecord) error

	// GetRevocation returns the tombstone for a token id, or ErrNotFound.
	GetRevocation(ctx context.Context, tokenID string) (domain.RevocationRecord, error)

	// DeleteRevocationsBefore removes tombstones older than the cutoff and
	// reports how many rows were deleted.
	DeleteRevocationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
