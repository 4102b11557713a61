// Package supabasestats fronts a relational stats database behind the
// same cache/queue discipline the other RouteActors use, substituting
// a pgx query for an HTTP fetch. The stats database is the "remote
// client" collaborator: this package treats its schema as a single
// opaque aggregate row, not a general-purpose SQL layer.
package supabasestats

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"encore.app/pkg/appconfig"
	"encore.app/pkg/cachestore"
	"encore.app/pkg/handlerrt"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
	"encore.app/pkg/metrics"
	"encore.app/pkg/queue"
	"encore.app/pkg/routeactor"
)

const (
	basePath = "/supabase"
	statsKey = "supabasestats_aggregate"
)

// StatsRow is the aggregate row the stats database returns: totals this
// system forwards to operators verbatim, never interpreting them.
type StatsRow struct {
	TotalContracts int64     `json:"total_contracts"`
	TotalAccounts  int64     `json:"total_accounts"`
	TotalEvents    int64     `json:"total_events"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// StatsClient is the remote-client collaborator boundary: the concrete
// implementation queries Supabase's Postgres endpoint via pgx, but any
// source of an aggregate row satisfies this for testing.
type StatsClient interface {
	FetchStats(ctx context.Context) (StatsRow, error)
}

// pgxStatsClient queries a single aggregate view through a pgx pool.
// This is the only place pgx is imported: the rest of the system never
// talks SQL.
type pgxStatsClient struct {
	pool *pgxpool.Pool
}

// NewPgxStatsClient connects to the Supabase Postgres endpoint with the
// connection string conventionally built from SUPABASE_URL/
// SUPABASE_SERVICE_KEY. The pool is created lazily; failures surface on
// first query rather than at construction.
func NewPgxStatsClient(connString string) *pgxStatsClient {
	pool, _ := pgxpool.New(context.Background(), connString)
	return &pgxStatsClient{pool: pool}
}

func (c *pgxStatsClient) FetchStats(ctx context.Context) (StatsRow, error) {
	var row StatsRow
	if c.pool == nil {
		return row, context.DeadlineExceeded
	}
	err := c.pool.QueryRow(ctx, `
		SELECT total_contracts, total_accounts, total_events, generated_at
		FROM aibtcdev_stats_aggregate
		LIMIT 1
	`).Scan(&row.TotalContracts, &row.TotalAccounts, &row.TotalEvents, &row.GeneratedAt)
	return row, err
}

//encore:service
type Service struct {
	stats  *statsFetcher
	router routeactor.Router
}

var (
	svc  *Service
	once sync.Once
)

func initService() (*Service, error) {
	once.Do(func() {
		cfg := appconfig.Get()
		connString := "postgres://postgres:" + cfg.SupabaseServiceKey + "@" + cfg.SupabaseURL + "/postgres"
		svc = newService(kvstore.NewMemoryStore(), NewPgxStatsClient(connString), cfg.DefaultCacheTTL)
	})
	return svc, nil
}

// statsFetcher wraps the cache/queue discipline the HTTP fetchers use
// around a StatsClient query instead of an HTTP GET: admit through a
// single-consumer queue, cache the result.
type statsFetcher struct {
	inner  *queue.RequestQueue[StatsRow]
	cache  *cachestore.CacheStore
	client StatsClient
	ttl    time.Duration
}

func newService(kv kvstore.Store, client StatsClient, defaultTTL time.Duration) *Service {
	cache := cachestore.New(kv, cachestore.Config{DefaultTTL: defaultTTL})
	q := queue.New[StatsRow](queue.Config{
		MaxRequestsPerInterval: 10,
		Interval:               time.Minute,
		MaxRetries:             2,
		RetryDelay:             500 * time.Millisecond,
		RequestTimeout:         5 * time.Second,
	})

	metrics.RegisterUpstream("supabase", q)

	s := &Service{
		stats: &statsFetcher{inner: q, cache: cache, client: client, ttl: defaultTTL},
	}
	s.router = s.buildRouter()
	return s
}

func (a *statsFetcher) fetchStats(ctx context.Context, bustCache, skipCache bool) (StatsRow, error) {
	var zero StatsRow
	if !bustCache {
		if v, ok, err := cachestore.Get[StatsRow](ctx, a.cache, statsKey); err != nil {
			return zero, err
		} else if ok {
			metrics.RecordCacheHit()
			return v, nil
		}
	}
	metrics.RecordCacheMiss()
	return a.inner.Enqueue(ctx, func(ctx context.Context) (StatsRow, error) {
		row, err := a.client.FetchStats(ctx)
		if err != nil {
			metrics.RecordUpstreamError()
			return zero, err
		}
		if !skipCache {
			if err := a.cache.Set(ctx, statsKey, row, a.ttl); err != nil {
				return zero, err
			}
		}
		return row, nil
	})
}

func (s *Service) buildRouter() routeactor.Router {
	return routeactor.Router{
		BasePath: basePath,
		Descriptor: func() any {
			return map[string]any{"service": "supabase", "endpoints": []string{"/stats"}}
		},
		Endpoints: []routeactor.Endpoint{
			{Pattern: "/stats", Methods: []string{http.MethodGet}, Handle: s.handleStats},
		},
	}
}

func (s *Service) handleStats(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	q := r.URL.Query()
	row, err := s.stats.fetchStats(ctx, q.Get("bustCache") == "true", q.Get("skipCache") == "true")
	if err != nil {
		return nil, err
	}
	return row, nil
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

// Fetch is the raw HTTP entry point the gateway dispatches to.
func Fetch(w http.ResponseWriter, r *http.Request) {
	s, _ := initService()
	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		return s.router.Dispatch(ctx, r)
	})
}
