package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryClient is a process-local cache driver for single-instance
// deployments and tests. Entries expire on their own TTL; reads do not
// extend lifetimes.
type MemoryClient struct {
	cache *ttlcache.Cache[string, string]
}

func NewMemoryClient() *MemoryClient {
	c := ttlcache.New[string, string](
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()

	return &MemoryClient{cache: c}
}

func (c *MemoryClient) Get(ctx context.Context, key string) (string, bool, error) {
	item := c.cache.Get(key)
	if item == nil {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (c *MemoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("memory set %q: ttl must be positive", key)
	}
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryClient) Close() error {
	c.cache.Stop()
	return nil
}
