// Package cachestore provides a typed, TTL-aware wrapper over the opaque
// kvstore.Store, grounded on pkg/models/cache.go's Entry/TTL conventions
// and cache-manager/cache.go's get/set shape.
package cachestore

import (
	"context"
	"encoding/json"
	"time"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
)

// Config controls default expiry behavior for a CacheStore.
type Config struct {
	// DefaultTTL is the ttl a caller typically passes to Set/SetRaw when
	// it wants the store's conventional expiry; CacheStore itself never
	// substitutes it in, since a literal ttl of 0 already has its own
	// meaning (see IgnoreTTL).
	DefaultTTL time.Duration

	// IgnoreTTL, when true, makes every Set store its value without
	// expiration regardless of the ttl argument.
	IgnoreTTL bool
}

// CacheStore is a typed wrapper over kvstore.Store. Values that are
// already strings or []byte are stored verbatim; everything else is
// JSON-encoded,
// with BigInt fields round-tripping as decimal strings rather than
// lossy float64s.
type CacheStore struct {
	kv  kvstore.Store
	cfg Config
}

// New wraps kv with the given config.
func New(kv kvstore.Store, cfg Config) *CacheStore {
	return &CacheStore{kv: kv, cfg: cfg}
}

// Set stores value under key. A string or []byte value is stored as-is;
// anything else is JSON-marshaled. A ttl of 0 (or IgnoreTTL) stores the value
// without expiration; otherwise it expires after ttl.
func (c *CacheStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return apierr.Wrap(apierr.CodeCache, err, "encode cache value for %q", key)
		}
		raw = encoded
	}

	effectiveTTL := ttl
	if c.cfg.IgnoreTTL {
		effectiveTTL = 0
	}

	if err := c.kv.Put(ctx, key, raw, effectiveTTL); err != nil {
		return apierr.Wrap(apierr.CodeCache, err, "store cache value for %q", key)
	}
	return nil
}

// SetRaw stores pre-encoded bytes verbatim, bypassing the string/JSON
// branch in Set. Used by tiers that already hold a wire-ready payload
// (e.g. a passthrough of an upstream response body).
func (c *CacheStore) SetRaw(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	effectiveTTL := ttl
	if c.cfg.IgnoreTTL {
		effectiveTTL = 0
	}
	if err := c.kv.Put(ctx, key, raw, effectiveTTL); err != nil {
		return apierr.Wrap(apierr.CodeCache, err, "store cache value for %q", key)
	}
	return nil
}

// GetRaw fetches the undecoded bytes stored under key.
func (c *CacheStore) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, false, apierr.Wrap(apierr.CodeCache, err, "read cache value for %q", key)
	}
	return raw, ok, nil
}

// Delete removes key.
func (c *CacheStore) Delete(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, key); err != nil {
		return apierr.Wrap(apierr.CodeCache, err, "delete cache value for %q", key)
	}
	return nil
}

// Get fetches key and JSON-decodes it into T. It returns (zero, false,
// nil) when the key is absent, and a CACHE_ERROR when the stored bytes
// cannot be decoded as T.
func Get[T any](ctx context.Context, c *CacheStore, key string) (T, bool, error) {
	var zero T
	raw, ok, err := c.GetRaw(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false, apierr.Wrap(apierr.CodeCache, err, "decode cache value for %q", key)
	}
	return out, true, nil
}
