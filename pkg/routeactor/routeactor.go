// Package routeactor implements the dispatch algorithm every upstream
// RouteActor shares (§4.8): strip the actor's base path, match the
// remainder against an allow-list of endpoint patterns, and either
// return a descriptor for the bare base path or route to an
// endpoint-specific handler. Factored out once here instead of
// repeated per service, the way cache-manager/service.go and
// warming/cron.go each hand-roll their own dispatch but share the
// same shape.
package routeactor

import (
	"context"
	"net/http"
	"strings"

	"encore.app/pkg/apierr"
)

// Endpoint is one allow-listed route inside an actor's base path.
//
// Pattern matches exactly, unless it ends in "/", in which case it
// matches any remainder beginning with Pattern (a registered prefix).
type Endpoint struct {
	Pattern string
	Methods []string
	Handle  func(ctx context.Context, r *http.Request, endpoint string) (any, error)
}

// Router holds one actor's dispatch table.
type Router struct {
	BasePath   string
	Endpoints  []Endpoint
	Descriptor func() any
}

// Dispatch runs the §4.8 algorithm against r.URL.Path.
func (router Router) Dispatch(ctx context.Context, r *http.Request) (any, error) {
	path := r.URL.Path
	if !strings.HasPrefix(path, router.BasePath) {
		return nil, apierr.New(apierr.CodeNotFound, "resource not found").
			WithDetails(map[string]any{"resource": path, "basePath": router.BasePath})
	}

	endpoint := path[len(router.BasePath):]
	if endpoint == "" || endpoint == "/" {
		return router.Descriptor(), nil
	}

	for _, e := range router.Endpoints {
		if !matches(e.Pattern, endpoint) {
			continue
		}
		if !methodAllowed(e.Methods, r.Method) {
			return nil, apierr.New(apierr.CodeInvalidRequest, "method %s not supported for %s", r.Method, endpoint)
		}
		return e.Handle(ctx, r, endpoint)
	}

	return nil, apierr.New(apierr.CodeNotFound, "endpoint not supported").
		WithDetails(map[string]any{"resource": endpoint, "supportedEndpoints": router.patterns()})
}

func (router Router) patterns() []string {
	out := make([]string, len(router.Endpoints))
	for i, e := range router.Endpoints {
		out[i] = e.Pattern
	}
	return out
}

func matches(pattern, endpoint string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(endpoint, pattern)
	}
	return pattern == endpoint
}

func methodAllowed(methods []string, method string) bool {
	if len(methods) == 0 {
		return method == http.MethodGet
	}
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
