package gateway

import (
	"testing"

	"encore.app/pkg/metrics"
)

func TestGetStats_ReflectsRecordedCounters(t *testing.T) {
	before := metrics.Stats()
	metrics.RecordCacheHit()
	RecordRequest()

	resp, err := GetStats(nil)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if resp.Data.CacheHits != before.CacheHits+1 {
		t.Fatalf("CacheHits = %d, want %d", resp.Data.CacheHits, before.CacheHits+1)
	}
	if resp.Data.RequestsTotal != before.RequestsTotal+1 {
		t.Fatalf("RequestsTotal = %d, want %d", resp.Data.RequestsTotal, before.RequestsTotal+1)
	}
}
