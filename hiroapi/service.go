// Package hiroapi fronts the Stacks chain API (Hiro) as a cached,
// rate-limited RouteActor: address balance/asset lookups and chain-info
// passthrough, plus the known-addresses index every address-scoped
// lookup feeds.
//
// Grounded on cache-manager/service.go's singleton-with-sync.Once
// idiom, generalized from an in-process L1/L2 cache to the
// pkg/fetcher/pkg/queue/pkg/cachestore composition §4.6 describes.
package hiroapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

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
	"encore.app/pkg/setindex"
	"encore.app/pkg/warmsweep"
)

const (
	basePath = "/hiro-api"
	// cachePrefix namespaces every passthrough cache key for this actor.
	cachePrefix = "hiroapi"
	// knownAddressesKey is the fixed global key the specification names
	// for the address index.
	knownAddressesKey = "aibtcdev_known_stacks_addresses"
)

// Service is the hiro-api RouteActor: one process-wide singleton,
// matching the actor model's "at most one task at a time" scheduling
// via its fetcher's own queue+bucket serialization.
//
//encore:service
type Service struct {
	cache          *cachestore.CacheStore
	fetcher        *fetcher.Fetcher
	knownAddresses *setindex.Index[string]
	router         routeactor.Router
}

var (
	svc  *Service
	once sync.Once
)

func initService() (*Service, error) {
	once.Do(func() {
		cfg := appconfig.Get()
		svc = newService(kvstore.NewMemoryStore(), &http.Client{Timeout: 10 * time.Second}, cfg.HiroAPIBaseURL, cfg.HiroAPIKey, cfg.DefaultCacheTTL)
	})
	return svc, nil
}

// newService builds a Service from its dependencies directly, bypassing
// the process-wide singleton; used by initService and by tests that
// need an isolated instance pointed at a fake upstream.
func newService(kv kvstore.Store, client *http.Client, baseURL, apiKey string, defaultTTL time.Duration) *Service {
	cache := cachestore.New(kv, cachestore.Config{DefaultTTL: defaultTTL})
	q := queue.New[fetcher.HTTPResult](queue.Config{
		MaxRequestsPerInterval: 50,
		Interval:               time.Minute,
		MaxRetries:             3,
		RetryDelay:             250 * time.Millisecond,
		RequestTimeout:         5 * time.Second,
	})
	f := fetcher.New(client, cache, q, fetcher.Config{
		BaseURL:      baseURL,
		APIKeyHeader: "x-api-key",
		APIKey:       apiKey,
		DefaultTTL:   defaultTTL,
	}, nil)
	metrics.RegisterUpstream("hiro-api", q)

	s := &Service{
		cache:          cache,
		fetcher:        f,
		knownAddresses: setindex.New[string](kv, knownAddressesKey, func(s string) string { return s }),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Service) buildRouter() routeactor.Router {
	return routeactor.Router{
		BasePath: basePath,
		Descriptor: func() any {
			return map[string]any{
				"service": "hiro-api",
				"endpoints": []string{
					"/v2/info",
					"/extended",
					"/extended/v1/address/{addr}/assets",
					"/extended/v1/address/{addr}/balances",
					"/known-addresses",
				},
			}
		},
		Endpoints: []routeactor.Endpoint{
			{Pattern: "/known-addresses", Methods: []string{http.MethodGet}, Handle: s.handleKnownAddresses},
			{Pattern: "/extended/v1/address/", Methods: []string{http.MethodGet}, Handle: s.handleAddressEndpoint},
			{Pattern: "/v2/info", Methods: []string{http.MethodGet}, Handle: s.handlePassthrough},
			{Pattern: "/extended", Methods: []string{http.MethodGet}, Handle: s.handlePassthrough},
			{Pattern: "/extended/", Methods: []string{http.MethodGet}, Handle: s.handlePassthrough},
		},
	}
}

func (s *Service) handlePassthrough(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	return s.fetchBody(ctx, r, endpoint)
}

func (s *Service) handleAddressEndpoint(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	addr := addressFromEndpoint(endpoint)
	if addr != "" {
		if err := s.knownAddresses.Insert(ctx, addr); err != nil {
			return nil, err
		}
	}
	return s.fetchBody(ctx, r, endpoint)
}

func (s *Service) fetchBody(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	q := r.URL.Query()
	opts := fetcher.Options{
		BustCache: q.Get("bustCache") == "true",
		SkipCache: q.Get("skipCache") == "true",
	}
	result, err := s.fetcher.Fetch(ctx, endpoint, cachekey.Path(cachePrefix, endpoint), opts)
	if err != nil {
		return nil, err
	}
	return rawJSON(result.Body), nil
}

// addressFromEndpoint extracts the principal address segment from an
// "/extended/v1/address/{addr}/..." endpoint.
func addressFromEndpoint(endpoint string) string {
	trimmed := strings.TrimPrefix(endpoint, "/extended/v1/address/")
	if trimmed == endpoint {
		return ""
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

type knownAddressesResponse struct {
	Stats struct {
		Storage  int `json:"storage"`
		Cached   int `json:"cached"`
		Uncached int `json:"uncached"`
	} `json:"stats"`
	Addresses struct {
		Storage  []string `json:"storage"`
		Cached   []string `json:"cached"`
		Uncached []string `json:"uncached"`
	} `json:"addresses"`
}

// handleKnownAddresses reports which known addresses currently have a
// cached balances entry, distinguishing storage (the full index) from
// cached (entries currently present in the cache tier).
func (s *Service) handleKnownAddresses(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	addresses, err := s.knownAddresses.List(ctx)
	if err != nil {
		return nil, err
	}

	var resp knownAddressesResponse
	resp.Addresses.Storage = addresses
	for _, addr := range addresses {
		key := cachekey.Path(cachePrefix, "/extended/v1/address/"+addr+"/balances")
		if _, ok, err := s.cache.GetRaw(ctx, key); err == nil && ok {
			resp.Addresses.Cached = append(resp.Addresses.Cached, addr)
		} else {
			resp.Addresses.Uncached = append(resp.Addresses.Uncached, addr)
		}
	}
	resp.Stats.Storage = len(resp.Addresses.Storage)
	resp.Stats.Cached = len(resp.Addresses.Cached)
	resp.Stats.Uncached = len(resp.Addresses.Uncached)
	return resp, nil
}

// rawJSON wraps an already-JSON-encoded byte slice so it is embedded
// verbatim into the success envelope's "data" field rather than
// re-encoded as a base64 string.
type rawJSONValue struct{ body []byte }

func rawJSON(body []byte) rawJSONValue { return rawJSONValue{body: body} }

func (v rawJSONValue) MarshalJSON() ([]byte, error) {
	if len(v.body) == 0 {
		return []byte("null"), nil
	}
	return v.body, nil
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

// Fetch is the raw HTTP entry point the gateway dispatches requests
// under this actor's base path to.
func Fetch(w http.ResponseWriter, r *http.Request) {
	s, _ := initService()
	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		return s.router.Dispatch(ctx, r)
	})
}

// runWarmAlarm implements §4.8's cache-warming alarm handler: re-fetch
// balances for every known address with bustCache=true. Exposed as the
// encore:api WarmAlarm in warm.go so it can be wired to a cron.Job.
func (s *Service) runWarmAlarm(ctx context.Context) error {
	addresses, err := s.knownAddresses.List(ctx)
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(10), 1)
	logger := logx.New("alarm", nil)
	warmsweep.Sweep(ctx, limiter, addresses, logger, func(ctx context.Context, addr string) error {
		endpoint := "/extended/v1/address/" + addr + "/balances"
		_, err := s.fetcher.Fetch(ctx, endpoint, cachekey.Path(cachePrefix, endpoint), fetcher.Options{BustCache: true})
		return err
	})
	return nil
}
