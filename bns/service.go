// Package bns fronts the on-chain name system (BNS), resolving a
// principal address to its name.namespace via a cached, rate-limited
// RouteActor.
package bns

import (
	"context"
	"net/http"
	"sync"
	"time"

	"encore.dev/cron"

	"encore.app/pkg/appconfig"
	"encore.app/pkg/cachekey"
	"encore.app/pkg/cachestore"
	"encore.app/pkg/fetcher"
	"encore.app/pkg/handlerrt"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
	"encore.app/pkg/metrics"
	"encore.app/pkg/queue"
	"encore.app/pkg/routeactor"
)

const (
	basePath    = "/bns"
	cachePrefix = "bns"
)

//encore:service
type Service struct {
	fetcher *fetcher.Fetcher
	router  routeactor.Router
}

var (
	svc  *Service
	once sync.Once
)

func initService() (*Service, error) {
	once.Do(func() {
		cfg := appconfig.Get()
		svc = newService(kvstore.NewMemoryStore(), &http.Client{Timeout: 10 * time.Second}, cfg.BNSBaseURL, cfg.DefaultCacheTTL)
	})
	return svc, nil
}

func newService(kv kvstore.Store, client *http.Client, baseURL string, defaultTTL time.Duration) *Service {
	cache := cachestore.New(kv, cachestore.Config{DefaultTTL: defaultTTL})
	q := queue.New[fetcher.HTTPResult](queue.Config{
		MaxRequestsPerInterval: 30,
		Interval:               time.Minute,
		MaxRetries:             3,
		RetryDelay:             250 * time.Millisecond,
		RequestTimeout:         5 * time.Second,
	})
	f := fetcher.New(client, cache, q, fetcher.Config{BaseURL: baseURL, DefaultTTL: defaultTTL}, nil)
	metrics.RegisterUpstream("bns", q)

	s := &Service{fetcher: f}
	s.router = s.buildRouter()
	return s
}

func (s *Service) buildRouter() routeactor.Router {
	return routeactor.Router{
		BasePath: basePath,
		Descriptor: func() any {
			return map[string]any{"service": "bns", "endpoints": []string{"/names/{addr}"}}
		},
		Endpoints: []routeactor.Endpoint{
			{Pattern: "/names/", Methods: []string{http.MethodGet}, Handle: s.handleLookup},
		},
	}
}

func (s *Service) handleLookup(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	q := r.URL.Query()
	opts := fetcher.Options{BustCache: q.Get("bustCache") == "true", SkipCache: q.Get("skipCache") == "true"}
	result, err := s.fetcher.Fetch(ctx, endpoint, cachekey.Path(cachePrefix, endpoint), opts)
	if err != nil {
		return nil, err
	}
	return rawJSON(result.Body), nil
}

type rawJSONValue struct{ body []byte }

func rawJSON(body []byte) rawJSONValue { return rawJSONValue{body: body} }

func (v rawJSONValue) MarshalJSON() ([]byte, error) {
	if len(v.body) == 0 {
		return []byte("null"), nil
	}
	return v.body, nil
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

// Fetch is the raw HTTP entry point the gateway dispatches to.
func Fetch(w http.ResponseWriter, r *http.Request) {
	s, _ := initService()
	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		return s.router.Dispatch(ctx, r)
	})
}

var _ = cron.NewJob("bns-warm", cron.JobConfig{
	Title:    "BNS cache warm sweep",
	Every:    30 * cron.Minute,
	Endpoint: WarmAlarm,
})

// WarmAlarm is a no-op: BNS lookups have no address index of their own
// to sweep (name resolution would have to be driven by hiro-api's
// known addresses, a cross-actor coupling this system deliberately
// avoids per §1's non-goals). Warming here is left to natural cache
// misses.
//
//encore:api private
func WarmAlarm(ctx context.Context) error {
	return nil
}
