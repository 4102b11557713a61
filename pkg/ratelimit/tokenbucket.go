// Package ratelimit implements the continuous-refill token bucket that
// bounds per-upstream request rate.
//
// Design Notes:
//   - Refill is lazy (computed on access), not timer-driven, so the bucket
//     behaves correctly across long idle periods and process suspensions
//     without drift.
//   - Lock-free via go.uber.org/atomic and a compare-and-swap retry loop,
//     the same shape as pkg/middleware/ratelimit.go's bucket.tryConsume,
//     generalized here to a single shared bucket per upstream fetcher
//     rather than one bucket per rate-limit key.
//
// Trade-offs:
//   - No blocking API: callers poll via the RequestQueue admission loop
//     instead of awaiting a channel, so a single bucket can be shared by a
//     queue without the queue and bucket needing to coordinate wakeups.
package ratelimit

import (
	"time"

	"go.uber.org/atomic"
)

// TokenBucket bounds request rate to maxTokens per refillInterval, with
// tokens accruing continuously rather than resetting at interval
// boundaries.
type TokenBucket struct {
	maxTokens  int64
	refillRate float64 // tokens per nanosecond

	tokens         atomic.Float64
	lastRefillNano atomic.Int64
}

// New creates a bucket that allows maxTokens requests per refillInterval,
// starting full.
func New(maxTokens int64, refillInterval time.Duration) *TokenBucket {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	if refillInterval <= 0 {
		refillInterval = time.Second
	}
	tb := &TokenBucket{
		maxTokens:  maxTokens,
		refillRate: float64(maxTokens) / float64(refillInterval.Nanoseconds()),
	}
	tb.tokens.Store(float64(maxTokens))
	tb.lastRefillNano.Store(time.Now().UnixNano())
	return tb
}

// refill adds elapsed*rate tokens, clamped to maxTokens, and advances
// lastRefillNano. Safe for concurrent callers; the CAS on lastRefillNano
// ensures only one goroutine accounts for a given elapsed window, so
// tokens are never double-credited.
func (tb *TokenBucket) refill(now int64) {
	last := tb.lastRefillNano.Load()
	elapsed := now - last
	if elapsed <= 0 {
		return
	}
	if !tb.lastRefillNano.CAS(last, now) {
		return
	}
	added := float64(elapsed) * tb.refillRate
	for {
		cur := tb.tokens.Load()
		next := cur + added
		if next > float64(tb.maxTokens) {
			next = float64(tb.maxTokens)
		}
		if tb.tokens.CAS(cur, next) {
			return
		}
	}
}

// TryAcquire refills, then consumes one token if available.
func (tb *TokenBucket) TryAcquire() bool {
	tb.refill(time.Now().UnixNano())
	for {
		cur := tb.tokens.Load()
		if cur < 1 {
			return false
		}
		if tb.tokens.CAS(cur, cur-1) {
			return true
		}
	}
}

// Available refills and returns the current token count.
func (tb *TokenBucket) Available() float64 {
	tb.refill(time.Now().UnixNano())
	return tb.tokens.Load()
}

// MaxTokens returns the bucket's capacity.
func (tb *TokenBucket) MaxTokens() int64 { return tb.maxTokens }
