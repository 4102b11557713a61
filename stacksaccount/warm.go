package stacksaccount

import (
	"context"

	"encore.dev/cron"
)

var _ = cron.NewJob("stacks-account-warm", cron.JobConfig{
	Title:    "Stacks account nonce warm sweep",
	Every:    15 * cron.Minute,
	Endpoint: WarmAlarm,
})

// WarmAlarm is a no-op: this actor has no address index of its own to
// iterate (it shards by address on first request rather than
// maintaining a discoverable index, unlike hiroapi's knownAddresses).
// A stored nonce never expires: handleGetNonce syncs from the upstream
// only when no nonce is stored yet or bustCache=true, and POST
// /nonce/sync refreshes it on demand.
//
//encore:api private
func WarmAlarm(ctx context.Context) error {
	return nil
}
