package warmsweep

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/time/rate"
)

type fakeLogger struct{ lines []string }

func (f *fakeLogger) Infof(format string, args ...any) { f.lines = append(f.lines, format) }
func (f *fakeLogger) Warnf(format string, args ...any) { f.lines = append(f.lines, format) }

func TestSweep_CountsSuccessAndFailure(t *testing.T) {
	keys := []string{"a", "b", "c"}
	res := Sweep(context.Background(), nil, keys, nil, func(ctx context.Context, key string) error {
		if key == "b" {
			return errors.New("boom")
		}
		return nil
	})
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Fatalf("res = %+v, want 2 succeeded, 1 failed", res)
	}
}

func TestSweep_EmptyKeysIsNoop(t *testing.T) {
	calls := 0
	res := Sweep(context.Background(), nil, nil, nil, func(ctx context.Context, key string) error {
		calls++
		return nil
	})
	if calls != 0 || res.Succeeded != 0 || res.Failed != 0 {
		t.Fatalf("expected no calls on empty key list, got %+v calls=%d", res, calls)
	}
}

func TestSweep_LogsSummary(t *testing.T) {
	logger := &fakeLogger{}
	Sweep(context.Background(), nil, []string{"a"}, logger, func(ctx context.Context, key string) error {
		return nil
	})
	if len(logger.lines) != 1 {
		t.Fatalf("logger.lines = %v, want 1 summary line", logger.lines)
	}
}

func TestSweep_StopsOnContextCancelWhenRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	// Drain the single burst token so the next Wait call blocks on the
	// canceled context and returns immediately with an error.
	limiter.Allow()

	calls := 0
	res := Sweep(ctx, limiter, []string{"a", "b"}, nil, func(ctx context.Context, key string) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 when context is already canceled", calls)
	}
	if res.Succeeded != 0 {
		t.Fatalf("res = %+v, want no successes", res)
	}
}
