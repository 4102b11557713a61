package timeoutrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"encore.app/pkg/apierr"
)

func TestRun_CompletesBeforeDeadline(t *testing.T) {
	got, err := Run(context.Background(), time.Second, "slow", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("Run() = %d, %v, want 42, nil", got, err)
	}
}

func TestRun_TimesOut(t *testing.T) {
	_, err := Run(context.Background(), 10*time.Millisecond, "too slow", func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Code != apierr.CodeTimeout {
		t.Fatalf("err = %v, want TIMEOUT_ERROR", err)
	}
}

func TestRun_PropagatesWorkError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := Run(context.Background(), time.Second, "x", func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestRun_ZeroTimeoutRunsDirectly(t *testing.T) {
	got, err := Run(context.Background(), 0, "x", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("Run() = %d, %v, want 7, nil", got, err)
	}
}
