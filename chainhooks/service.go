// Package chainhooks is the webhook sink RouteActor: it accepts posted
// chain events, persists them append-only (audit.go), and exposes them
// for operator inspection. Unlike the other actors it fronts no
// upstream HTTP API of its own; the "upstream" is the caller posting
// events to it.
package chainhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"encore.dev/storage/sqldb"

	"encore.app/pkg/apierr"
	"encore.app/pkg/handlerrt"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
	"encore.app/pkg/routeactor"
)

const basePath = "/chainhooks"

// db is the durable backing store for the webhook event log: chainhooks
// is the one actor whose state (the audit trail itself) is pointless to
// lose on restart, so it gets a real table instead of the process-local
// map the other actors' caches use, grounded on
// invalidation/audit.go's sqldb.Named + CREATE-TABLE-IF-NOT-EXISTS
// bootstrap.
var db = sqldb.Named("chainhooks_db")

//encore:service
type Service struct {
	events *EventLog
	router routeactor.Router
}

var (
	svc     *Service
	once    sync.Once
	initErr error
)

func initService() (*Service, error) {
	once.Do(func() {
		store, err := kvstore.NewSQLStore(context.Background(), db, "chainhooks_kv")
		if err != nil {
			initErr = err
			return
		}
		svc = newService(store)
	})
	return svc, initErr
}

func newService(kv kvstore.Store) *Service {
	s := &Service{events: NewEventLog(kv)}
	s.router = s.buildRouter()
	return s
}

func (s *Service) buildRouter() routeactor.Router {
	return routeactor.Router{
		BasePath: basePath,
		Descriptor: func() any {
			return map[string]any{"service": "chainhooks", "endpoints": []string{"/post-event", "/events", "/events/{id}"}}
		},
		Endpoints: []routeactor.Endpoint{
			{Pattern: "/post-event", Methods: []string{http.MethodPost}, Handle: s.handlePostEvent},
			{Pattern: "/events", Methods: []string{http.MethodGet}, Handle: s.handleListEvents},
			{Pattern: "/events/", Methods: []string{http.MethodGet}, Handle: s.handleGetEvent},
		},
	}
}

type postEventResponse struct {
	Message string `json:"message"`
	EventID string `json:"eventId"`
}

func (s *Service) handlePostEvent(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "read request body")
	}
	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, apierr.Wrap(apierr.CodeInvalidRequest, err, "decode event payload")
		}
	}

	id, err := s.events.Append(ctx, payload)
	if err != nil {
		return nil, err
	}
	return postEventResponse{Message: "event stored", EventID: id}, nil
}

func (s *Service) handleListEvents(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Service) handleGetEvent(ctx context.Context, r *http.Request, endpoint string) (any, error) {
	id := strings.TrimPrefix(endpoint, "/events/")
	event, ok, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.New(apierr.CodeNotFound, "event %q not found", id)
	}
	return event, nil
}

var runtime = handlerrt.New(kvstore.NewMemoryStore())

// Fetch is the raw HTTP entry point the gateway dispatches to.
func Fetch(w http.ResponseWriter, r *http.Request) {
	s, err := initService()
	runtime.Handle(r.Context(), w, handlerrt.Options{Path: r.URL.Path, Method: r.Method}, func(ctx context.Context, logger *logx.Logger) (any, error) {
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeInternal, err, "initialize chainhooks service")
		}
		return s.router.Dispatch(ctx, r)
	})
}
