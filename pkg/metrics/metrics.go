// Package metrics is the process-wide observability surface every
// Fetcher and RouteActor reports into, grounded on
// monitoring/metrics.go's atomic-counter MetricsCollector but scoped
// down to the observables §5's "Backpressure" paragraph says must be
// visible: cache hit/miss counters plus each upstream's live queue
// depth and bucket token availability. No ring buffer, no time-series
// retention.
package metrics

import (
	"sync"

	"go.uber.org/atomic"
)

var (
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	upstreamErrors atomic.Int64
	requestsTotal  atomic.Int64
)

// RecordCacheHit increments the process-wide cache hit counter.
func RecordCacheHit() { cacheHits.Add(1) }

// RecordCacheMiss increments the process-wide cache miss counter.
func RecordCacheMiss() { cacheMisses.Add(1) }

// RecordUpstreamError increments the process-wide upstream error counter.
func RecordUpstreamError() { upstreamErrors.Add(1) }

// RecordRequest increments the process-wide total request counter.
func RecordRequest() { requestsTotal.Add(1) }

// QueueProbe is the minimal surface RegisterUpstream needs from a
// request queue; *queue.RequestQueue[T] satisfies it.
type QueueProbe interface {
	Len() int
	TokensAvailable() float64
}

var (
	probesMu sync.Mutex
	probes   = map[string]QueueProbe{}
)

// RegisterUpstream makes name's queue observable through Stats. Each
// RouteActor registers its queue once at construction; re-registering
// a name replaces the previous probe.
func RegisterUpstream(name string, q QueueProbe) {
	probesMu.Lock()
	probes[name] = q
	probesMu.Unlock()
}

// UpstreamStats is one upstream's live queue/bucket observation.
type UpstreamStats struct {
	QueueDepth      int     `json:"queueDepth"`
	BucketAvailable float64 `json:"bucketAvailable"`
}

// Snapshot is the JSON-ready shape the gateway's stats endpoint returns.
type Snapshot struct {
	CacheHits      int64                    `json:"cacheHits"`
	CacheMisses    int64                    `json:"cacheMisses"`
	UpstreamErrors int64                    `json:"upstreamErrors"`
	RequestsTotal  int64                    `json:"requestsTotal"`
	Upstreams      map[string]UpstreamStats `json:"upstreams"`
}

// Stats reads the current counter values and polls every registered
// upstream's queue depth and bucket availability.
func Stats() Snapshot {
	snap := Snapshot{
		CacheHits:      cacheHits.Load(),
		CacheMisses:    cacheMisses.Load(),
		UpstreamErrors: upstreamErrors.Load(),
		RequestsTotal:  requestsTotal.Load(),
		Upstreams:      make(map[string]UpstreamStats),
	}
	probesMu.Lock()
	for name, q := range probes {
		snap.Upstreams[name] = UpstreamStats{
			QueueDepth:      q.Len(),
			BucketAvailable: q.TokensAvailable(),
		}
	}
	probesMu.Unlock()
	return snap
}
