package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"encore.app/pkg/apierr"
)

func testConfig() Config {
	return Config{
		MaxRequestsPerInterval: 100,
		Interval:               time.Millisecond, // keep minSpacing at its 250ms floor in most tests below via override
		MaxRetries:             2,
		RetryDelay:             5 * time.Millisecond,
		RequestTimeout:         time.Second,
	}
}

func TestRequestQueue_SingleRequestSucceeds(t *testing.T) {
	q := New[int](testConfig())
	got, err := q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("Enqueue() = %d, %v, want 7, nil", got, err)
	}
}

func TestRequestQueue_FIFOOrderAcrossCallers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestsPerInterval = 1000
	cfg.Interval = 10 * time.Millisecond
	q := New[int](cfg)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return i, nil
			})
		}()
		time.Sleep(2 * time.Millisecond) // stagger enqueue so arrival order is deterministic
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < len(order); i++ {
		if order[i] != i {
			t.Fatalf("admission order = %v, want 0..4 in order", order)
		}
	}
}

func TestRequestQueue_RetriesRetryableErrorToTail(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3
	cfg.RetryDelay = time.Millisecond
	q := New[int](cfg)

	var attempts int32
	got, err := q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return 0, apierr.New(apierr.CodeUpstreamAPIError, "transient")
		}
		return 99, nil
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v, want nil after retries", err)
	}
	if got != 99 {
		t.Fatalf("Enqueue() = %d, want 99", got)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRequestQueue_NonRetryableErrorFailsImmediately(t *testing.T) {
	q := New[int](testConfig())

	var attempts int32
	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&attempts, 1)
		return 0, apierr.New(apierr.CodeValidation, "bad input")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry for non-retryable error)", attempts)
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeValidation {
		t.Fatalf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestRequestQueue_ExhaustsRetriesThenFails(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	q := New[int](cfg)

	var attempts int32
	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&attempts, 1)
		return 0, apierr.New(apierr.CodeUpstreamAPIError, "always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 { // initial + 2 retries
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRequestQueue_UnclassifiedErrorWrappedAsUpstream(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 0
	q := New[int](cfg)

	plain := errors.New("boom")
	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
		return 0, plain
	})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeUpstreamAPIError {
		t.Fatalf("err = %v, want UPSTREAM_API_ERROR", err)
	}
}

func TestRequestQueue_PerItemTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 10 * time.Millisecond
	cfg.MaxRetries = 0
	q := New[int](cfg)

	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeTimeout {
		t.Fatalf("err = %v, want TIMEOUT_ERROR", err)
	}
}

func TestRequestQueue_RespectsBucketCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestsPerInterval = 1
	cfg.Interval = time.Hour
	cfg.RequestTimeout = time.Second
	q := New[int](cfg)

	var wg sync.WaitGroup
	var completed int32
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			_, err := q.Enqueue(ctx, func(ctx context.Context) (int, error) {
				atomic.AddInt32(&completed, 1)
				return 1, nil
			})
			_ = err
		}()
	}
	wg.Wait()

	if completed > 1 {
		t.Fatalf("completed = %d requests within a single-token bucket window, want <= 1", completed)
	}
}
