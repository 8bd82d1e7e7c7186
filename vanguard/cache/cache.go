// Package cache provides the key-value cache contract used by reporting
// features, plus a stampede-safe read-through helper built on top of it.
package cache

import (
	"context"
	"time"
)

// Cache is the minimal key-value surface the bot needs: plain get/set with
// expiry and an atomic set-if-absent used as an advisory lock primitive.
// The lock is never read for its value; its TTL bounds the damage of a
// crashed holder.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetNX stores the value only if the key is absent, reporting whether
	// it was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}
