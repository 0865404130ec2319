package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeStore()

	require.NoError(t, st.refresh.CreateRefreshToken(ctx, domain.RefreshTokenRecord{
		TokenHash: "hash-expired",
		UserID:    "u1",
		ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, st.refresh.CreateRefreshToken(ctx, domain.RefreshTokenRecord{
		TokenHash: "hash-live",
		UserID:    "u1",
		ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, st.revoked.CreateRevocation(ctx, domain.RevocationRecord{
		TokenID:   "jti-ancient",
		RevokedAt: now.Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, st.revoked.CreateRevocation(ctx, domain.RevocationRecord{
		TokenID:   "jti-recent",
		RevokedAt: now.Add(-time.Hour),
	}))

	svc := NewHousekeepingService(st, slogx.Nop(), time.Hour, 30*24*time.Hour)
	svc.Clock = func() time.Time { return now }
	svc.Cleanup()

	_, err := st.refresh.GetRefreshTokenByHash(ctx, "hash-expired")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.refresh.GetRefreshTokenByHash(ctx, "hash-live")
	require.NoError(t, err)

	_, err = st.revoked.GetRevocation(ctx, "jti-ancient")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.revoked.GetRevocation(ctx, "jti-recent")
	require.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	svc := NewHousekeepingService(newFakeStore(), slogx.Nop(), 10*time.Millisecond, time.Hour)

	svc.Start()
	time.Sleep(30 * time.Millisecond)
	svc.Stop()
}

func TestHousekeepingDefaults(t *testing.T) {
	svc := NewHousekeepingService(newFakeStore(), slogx.Nop(), 0, 0)
	require.Equal(t, time.Hour, svc.Interval)
	require.Equal(t, 30*24*time.Hour, svc.Retention)
}
