package routeactor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"encore.app/pkg/apierr"
)

func newTestRouter() Router {
	return Router{
		BasePath: "/hiro-api",
		Descriptor: func() any {
			return map[string]any{"service": "hiro-api"}
		},
		Endpoints: []Endpoint{
			{
				Pattern: "/v2/info",
				Methods: []string{http.MethodGet},
				Handle: func(ctx context.Context, r *http.Request, endpoint string) (any, error) {
					return "info", nil
				},
			},
			{
				Pattern: "/extended/v1/address/",
				Methods: []string{http.MethodGet},
				Handle: func(ctx context.Context, r *http.Request, endpoint string) (any, error) {
					return endpoint, nil
				},
			},
			{
				Pattern: "/post-event",
				Methods: []string{http.MethodPost},
				Handle: func(ctx context.Context, r *http.Request, endpoint string) (any, error) {
					return "posted", nil
				},
			},
		},
	}
}

func dispatch(t *testing.T, router Router, method, path string) (any, error) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	return router.Dispatch(context.Background(), req)
}

func TestDispatch_OutsideBasePathIsNotFound(t *testing.T) {
	_, err := dispatch(t, newTestRouter(), http.MethodGet, "/stx-city/tokens")
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestDispatch_BareBasePathReturnsDescriptor(t *testing.T) {
	got, err := dispatch(t, newTestRouter(), http.MethodGet, "/hiro-api")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	m := got.(map[string]any)
	if m["service"] != "hiro-api" {
		t.Fatalf("got = %v, want descriptor", got)
	}
}

func TestDispatch_BareBasePathWithTrailingSlashReturnsDescriptor(t *testing.T) {
	got, err := dispatch(t, newTestRouter(), http.MethodGet, "/hiro-api/")
	if err != nil || got == nil {
		t.Fatalf("Dispatch() = %v, %v, want descriptor", got, err)
	}
}

func TestDispatch_ExactMatchRoutes(t *testing.T) {
	got, err := dispatch(t, newTestRouter(), http.MethodGet, "/hiro-api/v2/info")
	if err != nil || got != "info" {
		t.Fatalf("Dispatch() = %v, %v, want info, nil", got, err)
	}
}

func TestDispatch_PrefixMatchPassesFullEndpoint(t *testing.T) {
	got, err := dispatch(t, newTestRouter(), http.MethodGet, "/hiro-api/extended/v1/address/SP123/balances")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "/extended/v1/address/SP123/balances" {
		t.Fatalf("got = %v, want full endpoint passed through", got)
	}
}

func TestDispatch_UnknownEndpointIsNotFoundWithSupportedList(t *testing.T) {
	_, err := dispatch(t, newTestRouter(), http.MethodGet, "/hiro-api/nope")
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if apiErr.Details["resource"] != "/nope" {
		t.Fatalf("details = %v", apiErr.Details)
	}
}

func TestDispatch_WrongMethodIsInvalidRequestNot405(t *testing.T) {
	_, err := dispatch(t, newTestRouter(), http.MethodGet, "/hiro-api/post-event")
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeInvalidRequest {
		t.Fatalf("err = %v, want INVALID_REQUEST (not 405)", err)
	}
}
