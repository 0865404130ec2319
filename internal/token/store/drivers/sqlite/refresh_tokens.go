package sqlite

import (
	"context"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshTokenRecord) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, device_fingerprint, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.TokenHash, t.UserID, t.ExpiresAt, t.DeviceFingerprint, t.Revoked, t.CreatedAt)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshTokenRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT token_hash, user_id, expires_at, device_fingerprint, revoked, created_at
		FROM refresh_tokens WHERE token_hash = ?`, hash)

	var t domain.RefreshTokenRecord
	err := row.Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.DeviceFingerprint, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return domain.RefreshTokenRecord{}, mapNotFound(err)
	}
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?`, hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?`, userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
