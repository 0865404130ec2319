package sqlite

import (
	"context"
	"time"

	"github.com/ledgerline/shopauth/internal/token/domain"
)

type revokedTokensRepo struct {
	q querier
}

// CreateRevocation inserts a tombstone. INSERT OR IGNORE keeps the first
// record authoritative when two revocations race on the same token id.
func (r *revokedTokensRepo) CreateRevocation(ctx context.Context, rec domain.RevocationRecord) error {
	if rec.RevokedAt.IsZero() {
		rec.RevokedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO revoked_tokens (token_id, revoked_at, reason)
		VALUES (?, ?, ?)`,
		rec.TokenID, rec.RevokedAt, rec.Reason)
	return err
}

func (r *revokedTokensRepo) GetRevocation(ctx context.Context, tokenID string) (domain.RevocationRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT token_id, revoked_at, reason
		FROM revoked_tokens WHERE token_id = ?`, tokenID)

	var rec domain.RevocationRecord
	if err := row.Scan(&rec.TokenID, &rec.RevokedAt, &rec.Reason); err != nil {
		return domain.RevocationRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *revokedTokensRepo) DeleteRevocationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM revoked_tokens WHERE revoked_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
