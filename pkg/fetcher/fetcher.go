// Package fetcher composes a TokenBucket-gated RequestQueue with a
// CacheStore around one upstream origin, grounded on
// cache-manager/cache.go's get-then-populate shape but reworked so the
// "populate" side goes through the queue/bucket discipline instead of a
// direct call, and on ContentSquare-chproxy/proxy.go's upstream dispatch
// for the response classification rules (429/5xx/4xx/2xx).
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"encore.app/pkg/apierr"
	"encore.app/pkg/cachestore"
	"encore.app/pkg/metrics"
	"encore.app/pkg/queue"
)

// Logger is the minimal surface Fetcher needs for slow-upstream-call
// observability.
type Logger interface {
	Warnf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}

// HTTPResult is what a GET against the upstream yields: either a cache
// hit/miss-then-populate 2xx body, or a passed-through non-retryable 4xx
// body with its original status code.
type HTTPResult struct {
	StatusCode int
	Body       []byte
}

// Options controls one Fetch call's cache interaction.
type Options struct {
	BustCache   bool // skip the cache read; always goes to upstream
	SkipCache   bool // don't write the upstream result back to cache
	TTLOverride time.Duration
}

// Config is the fixed, per-upstream configuration a Fetcher is built
// with.
type Config struct {
	BaseURL      string
	APIKeyHeader string
	APIKey       string
	DefaultTTL   time.Duration
}

// Fetcher composes a CacheStore and a RequestQueue around one upstream
// HTTP origin.
type Fetcher struct {
	client *http.Client
	cache  *cachestore.CacheStore
	queue  *queue.RequestQueue[HTTPResult]
	cfg    Config
	logger Logger

	// group dedupes concurrent misses on the same cache key within this
	// fetcher instance: if two callers race to populate the same key,
	// only one actually enqueues against the bucket/queue, and both
	// receive its result. This is intra-actor dedup only; it does not
	// coordinate across different RouteActors, which would require a
	// shared coordination point this system deliberately doesn't have.
	group singleflight.Group
}

// New builds a Fetcher. client is caller-supplied so upstreams needing
// custom transport/header handling get it at construction time instead
// of through runtime-wide client mutation.
func New(client *http.Client, cache *cachestore.CacheStore, q *queue.RequestQueue[HTTPResult], cfg Config, logger Logger) *Fetcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Fetcher{client: client, cache: cache, queue: q, cfg: cfg, logger: logger}
}

// Fetch resolves endpoint against the upstream base URL and returns its
// body, serving from cache when possible. Cache hits never consume a
// rate-limit token; only the miss path goes through the queue, and
// concurrent misses on the same cacheKey collapse into one enqueue.
func (f *Fetcher) Fetch(ctx context.Context, endpoint, cacheKey string, opts Options) (HTTPResult, error) {
	if !opts.BustCache {
		if raw, ok, err := f.cache.GetRaw(ctx, cacheKey); err != nil {
			return HTTPResult{}, err
		} else if ok {
			metrics.RecordCacheHit()
			return HTTPResult{StatusCode: http.StatusOK, Body: raw}, nil
		}
	}
	metrics.RecordCacheMiss()

	v, err, _ := f.group.Do(cacheKey, func() (any, error) {
		return f.queue.Enqueue(ctx, func(ctx context.Context) (HTTPResult, error) {
			return f.execute(ctx, endpoint, cacheKey, opts)
		})
	})
	if err != nil {
		return HTTPResult{}, err
	}
	return v.(HTTPResult), nil
}

func (f *Fetcher) execute(ctx context.Context, endpoint, cacheKey string, opts Options) (HTTPResult, error) {
	target, err := resolveEndpoint(f.cfg.BaseURL, endpoint)
	if err != nil {
		return HTTPResult{}, apierr.Wrap(apierr.CodeInternal, err, "resolve upstream endpoint %q", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return HTTPResult{}, apierr.Wrap(apierr.CodeInternal, err, "build upstream request")
	}
	if f.cfg.APIKeyHeader != "" && f.cfg.APIKey != "" {
		req.Header.Set(f.cfg.APIKeyHeader, f.cfg.APIKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	elapsed := time.Since(start)
	if elapsed > time.Second {
		f.logger.Warnf("slow upstream call to %s took %s", target, elapsed)
	}
	if err != nil {
		metrics.RecordUpstreamError()
		return HTTPResult{}, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "upstream request to %s failed", target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResult{}, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "read upstream response body from %s", target)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 60
		if h := resp.Header.Get("Retry-After"); h != "" {
			if n, err := strconv.Atoi(h); err == nil {
				retryAfter = n
			}
		}
		return HTTPResult{}, apierr.New(apierr.CodeRateLimitExceeded, "upstream rate limit exceeded").
			WithDetails(map[string]any{"retryAfter": retryAfter})

	case resp.StatusCode >= 500:
		metrics.RecordUpstreamError()
		return HTTPResult{}, apierr.New(apierr.CodeUpstreamAPIError, "upstream returned %d", resp.StatusCode).
			WithDetails(map[string]any{"status": resp.StatusCode})

	case resp.StatusCode >= 400:
		// Non-retryable: the upstream's own status/body passes through as
		// a success-shaped result, per the resolved "mixed result
		// handling" behavior.
		return HTTPResult{StatusCode: resp.StatusCode, Body: body}, nil

	default:
		if !opts.SkipCache {
			ttl := opts.TTLOverride
			if ttl <= 0 {
				ttl = f.cfg.DefaultTTL
			}
			if err := f.cache.SetRaw(ctx, cacheKey, body, ttl); err != nil {
				return HTTPResult{}, err
			}
		}
		return HTTPResult{StatusCode: resp.StatusCode, Body: body}, nil
	}
}

// resolveEndpoint resolves endpoint against base, preserving any base
// path (e.g. base "https://api.example.com/v1" + endpoint "/info"
// yields "https://api.example.com/v1/info", not
// "https://api.example.com/info").
func resolveEndpoint(base, endpoint string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	rel, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	joined := *baseURL
	joined.Path = trimRightSlash(baseURL.Path) + "/" + trimLeftSlash(rel.Path)
	joined.RawQuery = rel.RawQuery
	return joined.String(), nil
}

func trimRightSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func trimLeftSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
