// Package gateway is the front door (§4.11): the single raw endpoint
// every external request enters through. It handles CORS preflight,
// serves a welcome descriptor at the bare root, and forwards everything
// else to the RouteActor owning the request's prefix.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"encore.app/bns"
	"encore.app/chainhooks"
	"encore.app/contractcalls"
	"encore.app/hiroapi"
	"encore.app/pkg/apierr"
	"encore.app/pkg/handlerrt"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
	"encore.app/stacksaccount"
	"encore.app/stxcity"
	"encore.app/supabasestats"
)

// actorFetch is the raw-HTTP entry point every RouteActor package
// exposes, matching Fetch(w, r) in hiroapi, stxcity, bns, supabasestats,
// contractcalls, chainhooks, and stacksaccount.
type actorFetch func(w http.ResponseWriter, r *http.Request)

// prefixes lists, in order, the base path each RouteActor owns. "/
// stacks-account" is listed like any other prefix: the per-address
// actor identity is derived from {addr} *inside* that package, not here
// (the front door only needs to know which package owns the prefix).
var prefixes = []struct {
	prefix string
	fetch  actorFetch
}{
	{"/hiro-api", hiroapi.Fetch},
	{"/stx-city", stxcity.Fetch},
	{"/supabase", supabasestats.Fetch},
	{"/contract-calls", contractcalls.Fetch},
	{"/bns", bns.Fetch},
	{"/chainhooks", chainhooks.Fetch},
	{"/stacks-account", stacksaccount.Fetch},
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

const slowThreshold = 1000 * time.Millisecond

// Fetch is the system's single public raw endpoint: every external
// request, regardless of path, enters here.
//
//encore:api public raw path=/!fallback
func Fetch(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		handlerrt.WriteCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	RecordRequest()

	// A matched prefix delegates straight to that actor's own Fetch,
	// which wraps itself in the same HandlerRuntime contract and writes
	// its own response; this front door must not also write one.
	for _, p := range prefixes {
		if strings.HasPrefix(r.URL.Path, p.prefix) {
			p.fetch(w, r)
			return
		}
	}

	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method, SlowThreshold: slowThreshold}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		return dispatch(r)
	})
}

func dispatch(r *http.Request) (any, error) {
	if r.URL.Path == "/" || r.URL.Path == "" {
		return welcomeDescriptor(), nil
	}
	return nil, apierr.New(apierr.CodeNotFound, "no route for %s", r.URL.Path)
}

func welcomeDescriptor() map[string]any {
	names := make([]string, len(prefixes))
	for i, p := range prefixes {
		names[i] = p.prefix
	}
	return map[string]any{
		"service":  "aibtcdev-cache",
		"message":  "welcome",
		"services": names,
	}
}
