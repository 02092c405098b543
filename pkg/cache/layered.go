package cache

import (
	"context"
	"encoding/json"
	"time"
)

const defaultLocalTTL = 30 * time.Second

// LayeredCache reads through an in-process layer to Redis. Writes go to
// Redis first so a failed write never leaves memory ahead of the shared
// store. Locks always go to Redis so they hold across replicas.
type LayeredCache struct {
	local    *MemoryCache
	shared   *RedisCache
	localTTL time.Duration
	memOpts  []MemoryOption
}

// NewLayeredCache wraps shared with a memory layer.
func NewLayeredCache(shared *RedisCache, opts ...LayeredOption) *LayeredCache {
	lc := &LayeredCache{shared: shared, localTTL: defaultLocalTTL}
	for _, opt := range opts {
		opt(lc)
	}
	lc.local = NewMemoryCache(lc.memOpts...)
	return lc
}

func (lc *LayeredCache) localExpiry(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > lc.localTTL {
		return lc.localTTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.shared.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, lc.localExpiry(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if lc.local.Get(ctx, key, dest) == nil {
		return nil
	}
	if err := lc.shared.Get(ctx, key, dest); err != nil {
		return err
	}
	// Snapshot so later mutations of dest do not leak into the local layer.
	if snap, err := json.Marshal(dest); err == nil {
		_ = lc.local.Set(ctx, key, json.RawMessage(snap), lc.localTTL)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.shared.Delete(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.shared.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.shared.Unlock(ctx, key)
}

// Close stops the memory layer. The Redis client stays open for its owner.
func (lc *LayeredCache) Close() error {
	return lc.local.Close()
}
