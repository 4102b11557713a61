// Package contractcalls is the read-only smart-contract call RouteActor
// (§4.9): ABI lookup, argument decoding/validation, and cached
// read-only invocation, plus an address-agnostic Clarity value decoder
// endpoint for operator tooling.
package contractcalls

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"encore.app/pkg/apierr"
	"encore.app/pkg/appconfig"
	"encore.app/pkg/cachekey"
	"encore.app/pkg/cachestore"
	"encore.app/pkg/clarity"
	"encore.app/pkg/fetcher"
	"encore.app/pkg/handlerrt"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
	"encore.app/pkg/metrics"
	"encore.app/pkg/queue"
	"encore.app/pkg/routeactor"
	"encore.app/pkg/setindex"
	"encore.app/pkg/stacksaddr"
)

const (
	basePath    = "/contract-calls"
	cachePrefix = "contractcalls"
)

//encore:service
type Service struct {
	abis       *ContractAbiStore
	calls      *fetcher.ContractCallFetcher[map[string]any]
	caller     ClarityCaller
	defaultTTL time.Duration
	router     routeactor.Router
}

var (
	svc  *Service
	once sync.Once
)

func initService() (*Service, error) {
	once.Do(func() {
		cfg := appconfig.Get()
		client := &http.Client{Timeout: 10 * time.Second}
		svc = newService(
			kvstore.NewMemoryStore(),
			NewHTTPAbiFetcher(client, cfg.ContractCallBaseURL),
			NewHTTPClarityCaller(client, cfg.ContractCallBaseURL),
			cfg.DefaultCacheTTL,
		)
	})
	return svc, nil
}

func newService(kv kvstore.Store, abiFetcher AbiFetcher, caller ClarityCaller, defaultTTL time.Duration) *Service {
	abiCache := cachestore.New(kv, cachestore.Config{IgnoreTTL: true})
	known := setindex.New[contractRef](kv, knownContractsKey, contractRefKey)
	abis := NewContractAbiStore(abiCache, abiFetcher, known)

	callCache := cachestore.New(kv, cachestore.Config{DefaultTTL: defaultTTL})
	q := queue.New[map[string]any](queue.Config{
		MaxRequestsPerInterval: 30,
		Interval:               time.Minute,
		MaxRetries:             3,
		RetryDelay:             500 * time.Millisecond,
		RequestTimeout:         10 * time.Second,
	})
	calls := fetcher.NewContractCallFetcher[map[string]any](callCache, q)
	metrics.RegisterUpstream("contract-calls", q)

	s := &Service{abis: abis, calls: calls, caller: caller, defaultTTL: defaultTTL}
	s.router = s.buildRouter()
	return s
}

func (s *Service) buildRouter() routeactor.Router {
	return routeactor.Router{
		BasePath: basePath,
		Descriptor: func() any {
			return map[string]any{
				"service": "contract-calls",
				"endpoints": []string{
					"/abi/{addr}/{name}",
					"/read-only/{addr}/{name}/{fn}",
					"/known-contracts",
					"/decode-clarity-value",
				},
			}
		},
		Endpoints: []routeactor.Endpoint{
			{Pattern: "/known-contracts", Methods: []string{http.MethodGet}, Handle: s.handleKnownContracts},
			{Pattern: "/decode-clarity-value", Methods: []string{http.MethodPost}, Handle: s.handleDecodeClarityValue},
			{Pattern: "/abi/", Methods: []string{http.MethodGet}, Handle: s.handleAbi},
			{Pattern: "/read-only/", Methods: []string{http.MethodPost}, Handle: s.handleReadOnly},
		},
	}
}

// handleAbi implements GET /abi/{addr}/{name}.
func (s *Service) handleAbi(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	parts := strings.Split(strings.TrimPrefix(endpoint, "/abi/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, apierr.New(apierr.CodeInvalidRequest, "expected /abi/{addr}/{name}")
	}
	address, name := parts[0], parts[1]
	if _, ok := stacksaddr.Validate(address); !ok {
		return nil, apierr.New(apierr.CodeInvalidContractAddress, "invalid contract address %q", address)
	}
	return s.abis.Get(ctx, address, name)
}

type knownContractsResponse struct {
	Stats struct {
		Storage int `json:"storage"`
		Cached  int `json:"cached"`
	} `json:"stats"`
	Contracts struct {
		Cached []string `json:"cached"`
	} `json:"contracts"`
}

// handleKnownContracts implements GET /known-contracts.
func (s *Service) handleKnownContracts(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	known, err := s.abis.KnownContracts(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := s.abis.CachedKeys(ctx)
	if err != nil {
		return nil, err
	}

	var resp knownContractsResponse
	resp.Stats.Storage = len(known)
	resp.Stats.Cached = len(cached)
	resp.Contracts.Cached = cached
	return resp, nil
}

type decodeClarityValueRequest struct {
	Value              map[string]any `json:"value"`
	StrictJsonCompat   *bool          `json:"strictJsonCompat"`
	PreserveContainers *bool          `json:"preserveContainers"`
}

type decodeClarityValueResponse struct {
	Original any `json:"original"`
	Decoded  any `json:"decoded"`
}

// handleDecodeClarityValue implements POST /decode-clarity-value: a
// standalone decode of a simplified Clarity value, independent of any
// contract call, for operator tooling.
func (s *Service) handleDecodeClarityValue(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "read request body")
	}
	var req decodeClarityValueRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "decode request body")
	}

	value, err := clarity.FromSimplified(req.Value)
	if err != nil {
		return nil, err
	}

	strictJsonCompat := boolOr(req.StrictJsonCompat, true)
	preserveContainers := boolOr(req.PreserveContainers, false)
	decoded := clarity.ToJSON(value, strictJsonCompat, preserveContainers)

	return decodeClarityValueResponse{Original: req.Value, Decoded: decoded}, nil
}

type cacheControl struct {
	BustCache bool  `json:"bustCache"`
	SkipCache bool  `json:"skipCache"`
	TTL       int64 `json:"ttl"`
}

type readOnlyRequest struct {
	FunctionArgs       []map[string]any `json:"functionArgs"`
	Network            string           `json:"network"`
	SenderAddress      string           `json:"senderAddress"`
	StrictJsonCompat   *bool            `json:"strictJsonCompat"`
	PreserveContainers *bool            `json:"preserveContainers"`
	CacheControl       *cacheControl    `json:"cacheControl"`
}

type readOnlyResponse struct {
	Result any `json:"result"`
}

// handleReadOnly implements POST /read-only/{addr}/{name}/{fn} per §4.9.
func (s *Service) handleReadOnly(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	parts := strings.Split(strings.TrimPrefix(endpoint, "/read-only/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, apierr.New(apierr.CodeInvalidRequest, "expected /read-only/{addr}/{name}/{fn}")
	}
	address, name, fn := parts[0], parts[1], parts[2]
	if _, ok := stacksaddr.Validate(address); !ok {
		return nil, apierr.New(apierr.CodeInvalidContractAddress, "invalid contract address %q", address)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "read request body")
	}
	var req readOnlyRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "decode request body")
		}
	}
	network := req.Network
	if network == "" {
		network = "mainnet"
	}
	if !stacksaddr.ValidNetwork(network) {
		return nil, apierr.New(apierr.CodeValidation, "unrecognized network %q", network)
	}

	args := make([]clarity.Value, len(req.FunctionArgs))
	for i, raw := range req.FunctionArgs {
		v, err := clarity.FromSimplified(raw)
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeValidation, err, "functionArgs[%d]", i)
		}
		args[i] = v
	}

	abi, err := s.abis.Get(ctx, address, name)
	if err != nil {
		return nil, err
	}
	abiFn, ok := abi.FindFunction(fn)
	if !ok || !abiFn.Callable() {
		return nil, apierr.New(apierr.CodeInvalidFunction, "function %q is not callable on %s.%s", fn, address, name)
	}
	if len(abiFn.Args) != len(args) {
		return nil, apierr.New(apierr.CodeInvalidArguments, "function %q expects %d arguments, got %d", fn, len(abiFn.Args), len(args))
	}

	bustCache, skipCache := false, false
	ttl := s.defaultTTL
	if req.CacheControl != nil {
		bustCache = req.CacheControl.BustCache
		skipCache = req.CacheControl.SkipCache
		if req.CacheControl.TTL > 0 {
			ttl = time.Duration(req.CacheControl.TTL) * time.Second
		}
	}

	cacheKey, err := cachekey.ContractCall(cachePrefix+"_call", address, name, fn, network, req.FunctionArgs)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, err, "build cache key")
	}

	strictJsonCompat := boolOr(req.StrictJsonCompat, true)
	preserveContainers := boolOr(req.PreserveContainers, false)

	result, err := s.calls.Fetch(ctx, cacheKey, bustCache, skipCache, ttl, func(ctx context.Context) (map[string]any, error) {
		value, err := s.caller.CallReadOnly(ctx, address, name, fn, network, req.SenderAddress, args)
		if err != nil {
			return nil, err
		}
		decoded := clarity.ToJSON(value, strictJsonCompat, preserveContainers)
		return map[string]any{"value": decoded}, nil
	})
	if err != nil {
		return nil, err
	}

	return readOnlyResponse{Result: result["value"]}, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

// Fetch is the raw HTTP entry point the gateway dispatches to.
func Fetch(w http.ResponseWriter, r *http.Request) {
	s, _ := initService()
	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		return s.router.Dispatch(ctx, r)
	})
}
