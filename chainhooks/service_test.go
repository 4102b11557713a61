package chainhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
)

func TestPostEvent_ThenListAndGet(t *testing.T) {
	s := newService(kvstore.NewMemoryStore())
	ctx := context.Background()

	body := bytes.NewBufferString(`{"tx_id":"0xabc","type":"contract_call"}`)
	req := httptest.NewRequest(http.MethodPost, basePath+"/post-event", body)
	got, err := s.router.Dispatch(ctx, req)
	if err != nil {
		t.Fatalf("Dispatch post: %v", err)
	}
	resp := got.(postEventResponse)
	if resp.EventID == "" {
		t.Fatalf("expected a non-empty event id")
	}

	listReq := httptest.NewRequest(http.MethodGet, basePath+"/events", nil)
	listGot, err := s.router.Dispatch(ctx, listReq)
	if err != nil {
		t.Fatalf("Dispatch list: %v", err)
	}
	events := listGot.([]Event)
	if len(events) != 1 || events[0].ID != resp.EventID {
		t.Fatalf("events = %+v, want one event with id %s", events, resp.EventID)
	}

	getReq := httptest.NewRequest(http.MethodGet, basePath+"/events/"+resp.EventID, nil)
	getGot, err := s.router.Dispatch(ctx, getReq)
	if err != nil {
		t.Fatalf("Dispatch get: %v", err)
	}
	event := getGot.(Event)
	if event.Payload["tx_id"] != "0xabc" {
		t.Fatalf("event.Payload = %v", event.Payload)
	}
}

func TestGetEvent_UnknownIDIsNotFound(t *testing.T) {
	s := newService(kvstore.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, basePath+"/events/does-not-exist", nil)
	_, err := s.router.Dispatch(context.Background(), req)
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
