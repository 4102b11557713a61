// Package stacksaccount models the per-address actor the specification
// calls for (§9): one logical actor per Stacks principal, each tracking
// its own account nonce. Durable-object hosting is out of scope, so
// each address is a shard in a process-local map instead of a separate
// actor instance, with the nonce itself durable under
// "account_{addr}_nonce" in this actor's own SQL-backed KV store.
package stacksaccount

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"encore.dev/storage/sqldb"

	"encore.app/pkg/apierr"
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
	"encore.app/pkg/stacksaddr"
)

const basePath = "/stacks-account"

// db is the durable backing store for account nonces: the shard map
// itself is fine to lose on restart (it's rebuilt lazily per address),
// but the nonce values are the actor's whole reason for existing, so
// they get a real table the same way chainhooks' event log does.
var db = sqldb.Named("stacksaccount_db")

//encore:service
type Service struct {
	fetcher *fetcher.Fetcher
	kv      kvstore.Store
	router  routeactor.Router

	shardsMu sync.Mutex
	shards   map[string]*sync.Mutex
}

var (
	svc     *Service
	once    sync.Once
	initErr error
)

func initService() (*Service, error) {
	once.Do(func() {
		cfg := appconfig.Get()
		store, err := kvstore.NewSQLStore(context.Background(), db, "stacksaccount_kv")
		if err != nil {
			initErr = err
			return
		}
		svc = newService(store, &http.Client{Timeout: 10 * time.Second}, cfg.HiroAPIBaseURL, cfg.HiroAPIKey, cfg.DefaultCacheTTL)
	})
	return svc, initErr
}

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
	metrics.RegisterUpstream("stacks-account", q)

	s := &Service{fetcher: f, kv: kv, shards: make(map[string]*sync.Mutex)}
	s.router = s.buildRouter()
	return s
}

// shardLock returns the single-threaded lock for addr, creating it on
// first use. This is the "process-local sharded map" standing in for a
// dedicated actor instance per address.
func (s *Service) shardLock(addr string) *sync.Mutex {
	s.shardsMu.Lock()
	defer s.shardsMu.Unlock()
	mu, ok := s.shards[addr]
	if !ok {
		mu = &sync.Mutex{}
		s.shards[addr] = mu
	}
	return mu
}

func (s *Service) buildRouter() routeactor.Router {
	return routeactor.Router{
		BasePath: basePath,
		Descriptor: func() any {
			return map[string]any{
				"service":   "stacks-account",
				"endpoints": []string{"/{addr}/nonce", "/{addr}/nonce/sync", "/{addr}/nonce/update"},
			}
		},
		Endpoints: []routeactor.Endpoint{
			{Pattern: "/", Methods: []string{http.MethodGet, http.MethodPost}, Handle: s.handleAddressScoped},
		},
	}
}

// handleAddressScoped splits "/{addr}/nonce..." and dispatches to the
// matching nonce operation. A single prefix endpoint is used (rather
// than one per address) since addresses aren't known in advance.
func (s *Service) handleAddressScoped(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	rest := strings.TrimPrefix(endpoint, "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		return nil, apierr.New(apierr.CodeNotFound, "expected /{addr}/nonce...")
	}
	addr, sub := parts[0], parts[1]
	if _, ok := stacksaddr.Validate(addr); !ok {
		return nil, apierr.New(apierr.CodeValidation, "invalid stacks principal address %q", addr)
	}

	switch sub {
	case "nonce":
		if r.Method != http.MethodGet {
			return nil, apierr.New(apierr.CodeInvalidRequest, "method %s not supported for %q", r.Method, sub)
		}
		return s.handleGetNonce(ctx, r, addr)
	case "nonce/sync":
		if r.Method != http.MethodPost {
			return nil, apierr.New(apierr.CodeInvalidRequest, "method %s not supported for %q", r.Method, sub)
		}
		return s.handleSyncNonce(ctx, addr)
	case "nonce/update":
		if r.Method != http.MethodPost {
			return nil, apierr.New(apierr.CodeInvalidRequest, "method %s not supported for %q", r.Method, sub)
		}
		return s.handleUpdateNonce(ctx, r, addr)
	default:
		return nil, apierr.New(apierr.CodeNotFound, "unsupported nonce operation %q", sub)
	}
}

type nonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

func nonceKey(addr string) string { return "account_" + addr + "_nonce" }

func (s *Service) handleGetNonce(ctx context.Context, r *http.Request, addr string) (any, error) {
	mu := s.shardLock(addr)
	mu.Lock()
	defer mu.Unlock()

	bustCache := r.URL.Query().Get("bustCache") == "true"
	if !bustCache {
		if raw, ok, err := s.kv.Get(ctx, nonceKey(addr)); err != nil {
			return nil, apierr.Wrap(apierr.CodeCache, err, "read nonce for %s", addr)
		} else if ok {
			var resp nonceResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				return resp, nil
			}
		}
	}
	return s.syncNonce(ctx, addr)
}

func (s *Service) handleSyncNonce(ctx context.Context, addr string) (any, error) {
	mu := s.shardLock(addr)
	mu.Lock()
	defer mu.Unlock()
	return s.syncNonce(ctx, addr)
}

// syncNonce forces an upstream fetch of the account's current nonce and
// overwrites the stored value.
func (s *Service) syncNonce(ctx context.Context, addr string) (any, error) {
	endpoint := "/extended/v1/address/" + addr + "/nonces"
	result, err := s.fetcher.Fetch(ctx, endpoint, cachekey.Path("stacksaccount", endpoint), fetcher.Options{BustCache: true, SkipCache: true})
	if err != nil {
		return nil, err
	}

	var upstream struct {
		PossibleNextNonce uint64 `json:"possible_next_nonce"`
	}
	if err := json.Unmarshal(result.Body, &upstream); err != nil {
		return nil, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "decode nonce response for %s", addr)
	}

	resp := nonceResponse{Nonce: upstream.PossibleNextNonce}
	if err := s.storeNonce(ctx, addr, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) handleUpdateNonce(ctx context.Context, r *http.Request, addr string) (any, error) {
	mu := s.shardLock(addr)
	mu.Lock()
	defer mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "read request body")
	}
	var req nonceResponse
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "decode nonce update body")
	}

	if err := s.storeNonce(ctx, addr, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) storeNonce(ctx context.Context, addr string, resp nonceResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return apierr.Wrap(apierr.CodeInternal, err, "encode nonce for %s", addr)
	}
	if err := s.kv.Put(ctx, nonceKey(addr), raw, 0); err != nil {
		return apierr.Wrap(apierr.CodeCache, err, "store nonce for %s", addr)
	}
	return nil
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

// Fetch is the raw HTTP entry point the gateway dispatches to.
func Fetch(w http.ResponseWriter, r *http.Request) {
	s, err := initService()
	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeInternal, err, "initialize stacks-account service")
		}
		return s.router.Dispatch(ctx, r)
	})
}
