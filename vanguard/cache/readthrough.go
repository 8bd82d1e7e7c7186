package cache

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultValueTTL   = 5 * time.Minute
	defaultLockTTL    = 10 * time.Second
	defaultRetryDelay = 100 * time.Millisecond
	defaultMaxRetries = 20
)

var lockSentinel = []byte("1")

// ReadThrough wraps a Cache with stampede protection: concurrent misses on
// the same key elect one computer via SetNX, everyone else polls the cache.
// When polling exhausts its retries the caller computes directly, preferring
// duplicate work over blocking indefinitely under pathological contention.
// The retry ceiling and delay are tunables, not hidden constants.
type ReadThrough struct {
	cache Cache

	ValueTTL   time.Duration
	LockTTL    time.Duration
	RetryDelay time.Duration
	MaxRetries int
}

func NewReadThrough(cache Cache) *ReadThrough {
	return &ReadThrough{
		cache:      cache,
		ValueTTL:   defaultValueTTL,
		LockTTL:    defaultLockTTL,
		RetryDelay: defaultRetryDelay,
		MaxRetries: defaultMaxRetries,
	}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. compute runs at most once per key with high probability; with
// contention past the retry ceiling it may run more than once.
func (r *ReadThrough) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if value, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		return value, nil
	} else if err != nil {
		slog.Warn("Cache read failed, computing directly",
			slog.String("key", key),
			slog.Any("error", err))
		return compute(ctx)
	}

	lockKey := key + ":lock"
	acquired, err := r.cache.SetNX(ctx, lockKey, lockSentinel, r.LockTTL)
	if err != nil {
		slog.Warn("Cache lock acquisition failed, computing directly",
			slog.String("key", key),
			slog.Any("error", err))
		return compute(ctx)
	}

	if acquired {
		defer func() {
			if err := r.cache.Delete(ctx, lockKey); err != nil {
				slog.Warn("Failed to release cache lock",
					slog.String("key", key),
					slog.Any("error", err))
			}
		}()

		// Another holder may have populated the key between our miss and
		// the lock grant.
		if value, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			return value, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, key, value, r.ValueTTL); err != nil {
			slog.Warn("Failed to store computed value",
				slog.String("key", key),
				slog.Any("error", err))
		}
		return value, nil
	}

	// Someone else is computing; poll for their result.
	for i := 0; i < r.MaxRetries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.RetryDelay):
		}
		if value, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			return value, nil
		}
	}

	slog.Debug("Cache poll retries exhausted, computing directly",
		slog.String("key", key))
	return compute(ctx)
}
