package service

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/ledgerline/shopauth/pkg/cryptox"
	"github.com/ledgerline/shopauth/pkg/pasetov4"
)

// AccessValidator is the slice of TokenValidator the metadata cache needs.
type AccessValidator interface {
	ValidatePublicAccess(ctx context.Context, raw string) (domain.TokenClaims, error)
	ValidateLocalAccess(ctx context.Context, raw string) (domain.TokenClaims, error)
}

// MetadataCache memoizes successful access-token validations so hot tokens
// skip the full pipeline. Entries are keyed by token fingerprint, never
// outlive the token's own expiry, and failed validations are never cached;
// a rejected token re-runs the pipeline on every presentation.
type MetadataCache struct {
	Validator AccessValidator
	Metrics   metrics.Recorder
	Clock     Clock

	// TTL caps entry lifetime; the effective TTL is the smaller of this
	// and the time remaining until the token expires.
	TTL time.Duration

	cache *ttlcache.Cache[string, domain.CachedTokenData]
	group singleflight.Group
}

func NewMetadataCache(validator AccessValidator, rec metrics.Recorder, ttl time.Duration) *MetadataCache {
	c := &MetadataCache{
		Validator: validator,
		Metrics:   rec,
		TTL:       ttl,
		cache: ttlcache.New[string, domain.CachedTokenData](
			ttlcache.WithDisableTouchOnHit[string, domain.CachedTokenData](),
		),
	}
	go c.cache.Start()
	return c
}

// Get validates raw through the cache. Concurrent misses for the same
// token collapse to one pipeline run whose result, success or failure, is
// shared by all waiters.
func (m *MetadataCache) Get(ctx context.Context, raw string) (domain.CachedTokenData, error) {
	key := cryptox.FingerprintToken(raw)

	if item := m.cache.Get(key); item != nil {
		m.Metrics.CacheRequest("metadata", true)
		return item.Value(), nil
	}
	m.Metrics.CacheRequest("metadata", false)

	v, err, _ := m.group.Do(key, func() (any, error) {
		return m.load(ctx, key, raw)
	})
	if err != nil {
		return domain.CachedTokenData{}, err
	}
	return v.(domain.CachedTokenData), nil
}

// GetBatch resolves several raw tokens, returning per-token errors keyed
// by position. A failed token does not abort the rest of the batch.
func (m *MetadataCache) GetBatch(ctx context.Context, raws []string) ([]domain.CachedTokenData, []error) {
	data := make([]domain.CachedTokenData, len(raws))
	errs := make([]error, len(raws))
	for i, raw := range raws {
		data[i], errs[i] = m.Get(ctx, raw)
	}
	return data, errs
}

// Invalidate drops the cached entry for raw, forcing the next presentation
// through the full pipeline. Revocations call this so a freshly revoked
// token does not ride out a warm cache entry.
func (m *MetadataCache) Invalidate(raw string) {
	m.cache.Delete(cryptox.FingerprintToken(raw))
}

// Stats exposes the underlying cache counters.
func (m *MetadataCache) Stats() ttlcache.Metrics {
	return m.cache.Metrics()
}

// Stop shuts down the expiry janitor.
func (m *MetadataCache) Stop() {
	m.cache.Stop()
}

func (m *MetadataCache) load(ctx context.Context, key, raw string) (domain.CachedTokenData, error) {
	purpose, _, _, err := pasetov4.Split(raw)
	if err != nil {
		return domain.CachedTokenData{}, newError(ReasonMalformed, "metadata.load", "", err)
	}

	var claims domain.TokenClaims
	if purpose == pasetov4.PurposePublic {
		claims, err = m.Validator.ValidatePublicAccess(ctx, raw)
	} else {
		claims, err = m.Validator.ValidateLocalAccess(ctx, raw)
	}
	if err != nil {
		return domain.CachedTokenData{}, err
	}

	data := domain.CachedTokenData{
		RawToken:  raw,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt,
	}

	if ttl := m.entryTTL(claims); ttl > 0 {
		m.cache.Set(key, data, ttl)
	}
	return data, nil
}

// entryTTL clamps the configured TTL to the token's remaining validity so
// an expired token can never be served from cache.
func (m *MetadataCache) entryTTL(claims domain.TokenClaims) time.Duration {
	now := time.Now().UTC()
	if m.Clock != nil {
		now = m.Clock().UTC()
	}

	remaining := claims.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	if m.TTL > 0 && m.TTL < remaining {
		return m.TTL
	}
	return remaining
}
