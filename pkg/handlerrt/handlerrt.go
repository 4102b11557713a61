// Package handlerrt is the single place that turns a handler's return
// value or error into an HTTP response: uniform JSON envelopes, CORS
// headers, slow-request detection, and structured logging with a
// correlation ID, grounded on pkg/middleware/logging.go's request-timing
// and JSON-log shape, generalized from an HTTP middleware into a
// runtime every RouteActor and the Router call through explicitly so
// that raw Encore endpoints get the same uniform treatment as muxed
// ones.
package handlerrt

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
)

// DefaultSlowThreshold is the duration above which a successful request
// is logged at WARN instead of DEBUG.
const DefaultSlowThreshold = time.Second

// Options customizes one Handle call's logging context.
type Options struct {
	Path          string
	Method        string
	SlowThreshold time.Duration // zero means DefaultSlowThreshold
}

// Runtime is a reusable HandlerRuntime. Each RouteActor package and the
// Router build their own Runtime; it carries the KV store WARN/ERROR log
// entries mirror into.
type Runtime struct {
	logMirror kvstore.Store
}

// New returns a Runtime that mirrors WARN/ERROR log entries into
// logMirror (may be nil to disable mirroring).
func New(logMirror kvstore.Store) *Runtime {
	return &Runtime{logMirror: logMirror}
}

// successEnvelope is the §6 success response shape.
type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorBody is the nested "error" object in the §6 error response shape.
type errorBody struct {
	ID      string         `json:"id"`
	Code    apierr.Code    `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// Handle runs work, writes CORS headers plus a JSON envelope to w, and
// emits structured logs around the call. It is the only place in this
// codebase that converts a handler error into an HTTP response body.
func (rt *Runtime) Handle(ctx context.Context, w http.ResponseWriter, opts Options, work func(ctx context.Context, logger *logx.Logger) (any, error)) {
	slowThreshold := opts.SlowThreshold
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}

	correlationID := logx.NewCorrelationID()
	logger := logx.New(correlationID, rt.logMirror)
	logger.Infof("request started method=%s path=%s", opts.Method, opts.Path)

	WriteCORSHeaders(w)

	start := time.Now()
	result, err := work(ctx, logger)
	duration := time.Since(start)

	if err == nil {
		if duration > slowThreshold {
			logger.WarnfCtx(ctx, "slow request method=%s path=%s duration=%s", opts.Method, opts.Path, duration)
		} else {
			logger.Debugf("request completed method=%s path=%s duration=%s", opts.Method, opts.Path, duration)
		}
		writeJSON(w, http.StatusOK, successEnvelope{Success: true, Data: result})
		return
	}

	apiErr, ok := apierr.As(err)
	if !ok {
		logger.ErrorfCtx(ctx, err, "unhandled error method=%s path=%s", opts.Method, opts.Path)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Success: false,
			Error: errorBody{
				ID:      correlationID,
				Code:    apierr.CodeInternal,
				Message: err.Error(),
			},
		})
		return
	}

	apiErr.CorrelationID = correlationID
	logger.WarnfCtx(ctx, "request failed method=%s path=%s code=%s", opts.Method, opts.Path, apiErr.Code)
	writeJSON(w, apiErr.HTTPStatus(), errorEnvelope{
		Success: false,
		Error: errorBody{
			ID:      correlationID,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// WriteCORSHeaders sets the fixed CORS headers every response (including
// errors and preflight) must carry.
func WriteCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Max-Age", "86400")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
