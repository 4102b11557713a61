// Package warmsweep implements the §4.8 alarm-handler body that
// hiroapi's warm.go runs: iterate a list of warmable keys, call
// each through the actor's own fetcher with bustCache=true, count
// success/fail, and log a summary. Grounded on warming/worker_pool.go's
// task loop, but single-threaded per actor (matching §5's "one logical
// worker" scheduling model) with a golang.org/x/time/rate limiter
// pacing the sweep itself so a large index doesn't burst the actor's
// token bucket empty in one tick.
package warmsweep

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Logger is the minimal surface a sweep needs to report its summary.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Result is the outcome of one sweep.
type Result struct {
	Started   time.Time
	Duration  time.Duration
	Succeeded int
	Failed    int
}

// Sweep calls warm(ctx, key) for every key in keys, pacing calls through
// limiter so the sweep's own client-side request rate stays smooth even
// when keys is large. limiter may be nil to disable pacing (the actor's
// own bucket+queue still governs admission either way).
func Sweep(ctx context.Context, limiter *rate.Limiter, keys []string, logger Logger, warm func(ctx context.Context, key string) error) Result {
	res := Result{Started: time.Now()}

	for _, key := range keys {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		if err := warm(ctx, key); err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}

	res.Duration = time.Since(res.Started)
	if logger != nil {
		logger.Infof("warm sweep complete keys=%d succeeded=%d failed=%d duration=%s",
			len(keys), res.Succeeded, res.Failed, res.Duration)
	}
	return res
}
