package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/shopauth/internal/token/cache"
	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

// Cache values for revocation lookups. Both outcomes are cached so a hot
// token, revoked or not, costs at most one store query per TTL window.
const (
	cacheValueRevoked    = "revoked"
	cacheValueNotRevoked = "ok"
)

// RevocationLedger is the durable+cached record of dead token ids. Reads
// fail secure: any cache or store error counts as revoked. Writes surface
// their errors; a caller asking to revoke must know if the tombstone did
// not land.
type RevocationLedger struct {
	Store   store.RevokedTokens
	Cache   cache.Client
	Metrics metrics.Recorder
	Clock   Clock

	// TTL bounds both positive and negative cache entries.
	TTL time.Duration

	group singleflight.Group
}

// Revoke inserts a tombstone for tokenID. It is idempotent: a known-revoked
// id is a no-op with zero store writes. A cache entry claiming "revoked"
// while the store has no record is an anomaly; it is healed by re-inserting
// the durable record (INSERT OR IGNORE keeps it single) and logged.
func (l *RevocationLedger) Revoke(ctx context.Context, tokenID, reason string) error {
	const op = "ledger.revoke"
	log := slogx.FromContext(ctx)

	if val, ok, err := l.Cache.Get(ctx, tokenID); err == nil && ok && val == cacheValueRevoked {
		if _, err := l.Store.GetRevocation(ctx, tokenID); err == nil {
			return nil // already revoked everywhere
		} else if errors.Is(err, store.ErrNotFound) {
			log.Warn("revocation cached but missing from store, re-inserting",
				slog.String("jti", tokenID))
		}
		// On store read errors fall through and attempt the write anyway.
	}

	rec := domain.RevocationRecord{
		TokenID:   tokenID,
		RevokedAt: l.now(),
		Reason:    reason,
	}
	if err := l.Store.CreateRevocation(ctx, rec); err != nil {
		return newError(ReasonRevocationStore, op, tokenID, err)
	}

	// Cache write is best effort; the durable record is authoritative and
	// readers fail secure without it.
	if err := l.Cache.Set(ctx, tokenID, cacheValueRevoked, l.TTL); err != nil {
		log.Warn("revocation cache write failed",
			slog.String("jti", tokenID), slog.Any("error", err))
	}

	l.Metrics.TokenRevoked(reason)
	log.Info("token revoked", slog.String("jti", tokenID), slog.String("reason", reason))
	return nil
}

// IsRevoked reports whether tokenID is revoked. Concurrent lookups for the
// same id collapse to a single cache/store round trip; errors anywhere in
// the path read as revoked.
func (l *RevocationLedger) IsRevoked(ctx context.Context, tokenID string) bool {
	v, err, _ := l.group.Do(tokenID, func() (any, error) {
		return l.lookup(ctx, tokenID)
	})
	if err != nil {
		l.Metrics.RevocationChecked("error")
		slogx.FromContext(ctx).Warn("revocation check failed, treating as revoked",
			slog.String("jti", tokenID), slog.Any("error", err))
		return true
	}
	return v.(bool)
}

// ValidateNotRevoked rejects claims whose jti is revoked.
func (l *RevocationLedger) ValidateNotRevoked(ctx context.Context, claims domain.TokenClaims) error {
	if l.IsRevoked(ctx, claims.TokenID) {
		return newError(ReasonRevoked, "ledger.validate", claims.TokenID, nil)
	}
	return nil
}

func (l *RevocationLedger) lookup(ctx context.Context, tokenID string) (bool, error) {
	val, ok, err := l.Cache.Get(ctx, tokenID)
	if err != nil {
		return true, err
	}
	l.Metrics.CacheRequest("revocation", ok)
	if ok {
		l.Metrics.RevocationChecked("cache")
		return val == cacheValueRevoked, nil
	}

	revoked := false
	if _, err := l.Store.GetRevocation(ctx, tokenID); err == nil {
		revoked = true
	} else if !errors.Is(err, store.ErrNotFound) {
		return true, err
	}
	l.Metrics.RevocationChecked("store")

	// Write the result back with a TTL regardless of outcome: positive
	// caching for revoked, negative caching for not-revoked.
	cacheVal := cacheValueNotRevoked
	if revoked {
		cacheVal = cacheValueRevoked
	}
	if err := l.Cache.Set(ctx, tokenID, cacheVal, l.TTL); err != nil {
		slogx.FromContext(ctx).Warn("revocation cache write failed",
			slog.String("jti", tokenID), slog.Any("error", err))
	}

	return revoked, nil
}

func (l *RevocationLedger) now() time.Time {
	if l.Clock != nil {
		return l.Clock().UTC()
	}
	return time.Now().UTC()
}
