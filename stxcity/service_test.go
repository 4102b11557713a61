package stxcity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
)

func TestHandlePassthrough_CachesOnSuccess(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"tokens":[]}`))
	}))
	defer upstream.Close()

	s := newService(kvstore.NewMemoryStore(), upstream.Client(), upstream.URL, time.Minute)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, basePath+"/tokens/tradable-full-details-tokens", nil)
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, err := s.router.Dispatch(ctx, req); err != nil {
		t.Fatalf("Dispatch (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1 (second call should be served from cache)", calls)
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
