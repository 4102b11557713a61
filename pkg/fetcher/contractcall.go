package fetcher

import (
	"context"
	"time"

	"encore.app/pkg/cachestore"
	"encore.app/pkg/metrics"
	"encore.app/pkg/queue"
)

// ContractCallFetcher applies the same cache/queue/retry discipline as
// Fetcher, but the admitted closure invokes a read-only smart-contract
// call through an external executor instead of performing an HTTP GET.
// R is whatever JSON-ready shape the caller decodes a call result into.
type ContractCallFetcher[R any] struct {
	cache *cachestore.CacheStore
	queue *queue.RequestQueue[R]
}

// NewContractCallFetcher builds a ContractCallFetcher around an
// already-configured cache and queue.
func NewContractCallFetcher[R any](cache *cachestore.CacheStore, q *queue.RequestQueue[R]) *ContractCallFetcher[R] {
	return &ContractCallFetcher[R]{cache: cache, queue: q}
}

// Fetch serves cacheKey from cache unless bustCache, otherwise enqueues
// execute and caches its result unless skipCache.
func (f *ContractCallFetcher[R]) Fetch(ctx context.Context, cacheKey string, bustCache, skipCache bool, ttl time.Duration, execute func(ctx context.Context) (R, error)) (R, error) {
	var zero R
	if !bustCache {
		if v, ok, err := cachestore.Get[R](ctx, f.cache, cacheKey); err != nil {
			return zero, err
		} else if ok {
			metrics.RecordCacheHit()
			return v, nil
		}
	}
	metrics.RecordCacheMiss()

	return f.queue.Enqueue(ctx, func(ctx context.Context) (R, error) {
		result, err := execute(ctx)
		if err != nil {
			metrics.RecordUpstreamError()
			return zero, err
		}
		if !skipCache {
			if err := f.cache.Set(ctx, cacheKey, result, ttl); err != nil {
				return zero, err
			}
		}
		return result, nil
	})
}
