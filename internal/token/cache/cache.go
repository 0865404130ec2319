// Package cache defines the small key/value contract the revocation ledger
// uses for its shared lookup tier, with redis and in-memory drivers.
package cache

import (
	"context"
	"time"
)

// Client is a TTL'd string cache. Drivers must treat a missing key as a
// normal outcome (ok=false, nil error); errors are reserved for transport
// or backend failures so callers can fail secure on them.
type Client interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key for ttl. A non-positive ttl is rejected;
	// nothing in this subsystem caches forever.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key if present.
	Delete(ctx context.Context, key string) error

	// Close releases driver resources.
	Close() error
}
