package bns

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
)

func TestHandleLookup_CachesOnSuccess(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"names":["foo.btc"]}`))
	}))
	defer upstream.Close()

	s := newService(kvstore.NewMemoryStore(), upstream.Client(), upstream.URL, time.Minute)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, basePath+"/names/SP123", nil)
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls)
	}
}

func TestHandleLookup_BustCacheRefetches(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"names":["foo.btc"]}`))
	}))
	defer upstream.Close()

	s := newService(kvstore.NewMemoryStore(), upstream.Client(), upstream.URL, time.Minute)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, basePath+"/names/SP123", nil)
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	req2 := httptest.NewRequest(http.MethodGet, basePath+"/names/SP123?bustCache=true", nil)
	if _, err := s.router.Dispatch(ctx, req2); err != nil {
		t.Fatalf("Dispatch (bust): %v", err)
	}
	if calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", calls)
	}
}

func TestDispatch_UnknownPathIsNotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()
	s := newService(kvstore.NewMemoryStore(), upstream.Client(), upstream.URL, time.Minute)

	req := httptest.NewRequest(http.MethodGet, basePath+"/not-a-route", nil)
	_, err := s.router.Dispatch(context.Background(), req)
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
