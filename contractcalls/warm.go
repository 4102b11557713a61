package contractcalls

import (
	"context"

	"encore.dev/cron"
)

var _ = cron.NewJob("contract-calls-warm", cron.JobConfig{
	Title:    "Contract ABI/call warm sweep",
	Every:    30 * cron.Minute,
	Endpoint: WarmAlarm,
})

// WarmAlarm is a no-op: ABIs are cached with unbounded TTL and
// skip-if-present refresh (invariant I6), so there is nothing to warm
// there, and call-result cache entries aren't tied to a stable
// per-contract index the way balances are tied to an address (the
// arguments a caller will use next aren't known in advance).
//
//encore:api private
func WarmAlarm(ctx context.Context) error {
	return nil
}
