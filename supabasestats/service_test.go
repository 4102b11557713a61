package supabasestats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"encore.app/pkg/kvstore"
)

type fakeStatsClient struct {
	calls int
	row   StatsRow
}

func (f *fakeStatsClient) FetchStats(ctx context.Context) (StatsRow, error) {
	f.calls++
	return f.row, nil
}

func TestHandleStats_CachesOnSuccess(t *testing.T) {
	fake := &fakeStatsClient{row: StatsRow{TotalContracts: 5}}
	s := newService(kvstore.NewMemoryStore(), fake, time.Minute)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, basePath+"/stats", nil)
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch (cached): %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("client calls = %d, want 1", fake.calls)
	}
}

func TestHandleStats_BustCacheRefetches(t *testing.T) {
	fake := &fakeStatsClient{row: StatsRow{TotalContracts: 5}}
	s := newService(kvstore.NewMemoryStore(), fake, time.Minute)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, basePath+"/stats", nil)
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	req2 := httptest.NewRequest(http.MethodGet, basePath+"/stats?bustCache=true", nil)
	if _, err := s.router.Dispatch(ctx, req2); err != nil {
		t.Fatalf("Dispatch (bust): %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("client calls = %d, want 2", fake.calls)
	}
}
