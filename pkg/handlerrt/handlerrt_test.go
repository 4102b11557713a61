package handlerrt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
	"encore.app/pkg/logx"
)

func TestHandle_SuccessEnvelope(t *testing.T) {
	rt := New(nil)
	w := httptest.NewRecorder()

	rt.Handle(context.Background(), w, Options{Path: "/x", Method: "GET"}, func(ctx context.Context, l *logx.Logger) (any, error) {
		return map[string]string{"hello": "world"}, nil
	})

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("missing CORS header on success response")
	}
}

func TestHandle_ApiErrorEnvelope(t *testing.T) {
	rt := New(nil)
	w := httptest.NewRecorder()

	rt.Handle(context.Background(), w, Options{Path: "/x", Method: "GET"}, func(ctx context.Context, l *logx.Logger) (any, error) {
		return nil, apierr.New(apierr.CodeNotFound, "no such resource")
	})

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["success"] != false {
		t.Fatalf("success = %v, want false", body["success"])
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != string(apierr.CodeNotFound) {
		t.Fatalf("error.code = %v, want %s", errObj["code"], apierr.CodeNotFound)
	}
	if errObj["id"] == "" || errObj["id"] == nil {
		t.Fatal("error.id should be a non-empty correlation id")
	}
}

func TestHandle_UnclassifiedErrorBecomesInternal(t *testing.T) {
	rt := New(nil)
	w := httptest.NewRecorder()

	rt.Handle(context.Background(), w, Options{}, func(ctx context.Context, l *logx.Logger) (any, error) {
		return nil, errors.New("unexpected")
	})

	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	errObj := body["error"].(map[string]any)
	if errObj["code"] != string(apierr.CodeInternal) {
		t.Fatalf("error.code = %v, want %s", errObj["code"], apierr.CodeInternal)
	}
}

func TestHandle_SlowRequestMirrorsWarnLog(t *testing.T) {
	mirror := kvstore.NewMemoryStore()
	rt := New(mirror)
	w := httptest.NewRecorder()

	rt.Handle(context.Background(), w, Options{SlowThreshold: time.Millisecond}, func(ctx context.Context, l *logx.Logger) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})

	keys, _, err := mirror.List(context.Background(), "logs_", "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) == 0 {
		t.Fatal("expected a mirrored WARN log entry for a slow request")
	}
}

func TestHandle_NonSlowRequestDoesNotMirror(t *testing.T) {
	mirror := kvstore.NewMemoryStore()
	rt := New(mirror)
	w := httptest.NewRecorder()

	rt.Handle(context.Background(), w, Options{SlowThreshold: time.Hour}, func(ctx context.Context, l *logx.Logger) (any, error) {
		return "ok", nil
	})

	keys, _, _ := mirror.List(context.Background(), "logs_", "", 10)
	if len(keys) != 0 {
		t.Fatalf("len(keys) = %d, want 0 for a fast success", len(keys))
	}
}

func TestWriteCORSHeaders_SetsAllFour(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCORSHeaders(w)

	for _, h := range []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
		"Access-Control-Max-Age",
	} {
		if w.Header().Get(h) == "" {
			t.Fatalf("missing header %s", h)
		}
	}
}
