// metrics.go is a supplemented operator-facing addition: a public
// endpoint exposing the process-wide pkg/metrics cache counters plus
// each upstream's live queue depth and bucket token availability,
// grounded on monitoring/service.go's GetMetrics endpoint shape.
package gateway

import (
	"context"

	"encore.app/pkg/metrics"
)

// RecordRequest increments the process-wide total request counter; the
// front door calls this for every request it sees, matched or not,
// except CORS preflight (OPTIONS) requests, which it answers first.
func RecordRequest() { metrics.RecordRequest() }

// StatsResponse wraps the metrics snapshot the way every other public
// endpoint in this system wraps its payload, for consistency with
// handlerrt's envelope shape even though this one is a native Encore
// endpoint rather than a raw one.
type StatsResponse struct {
	Data metrics.Snapshot `json:"data"`
}

//encore:api public method=GET path=/gateway/stats
func GetStats(ctx context.Context) (*StatsResponse, error) {
	return &StatsResponse{Data: metrics.Stats()}, nil
}
