package supabasestats

import (
	"context"

	"encore.dev/cron"

	"encore.app/pkg/appconfig"
)

var _ = cron.NewJob("supabase-stats-warm", cron.JobConfig{
	Title:    "Supabase stats cache warm sweep",
	Every:    15 * cron.Minute,
	Endpoint: WarmAlarm,
})

// WarmAlarm refreshes the single aggregate stats row. This actor has no
// per-entity index to sweep, so warming is a single bustCache refresh.
//
//encore:api private
func WarmAlarm(ctx context.Context) error {
	if !appconfig.Get().AlarmsEnabled {
		return nil
	}
	s, _ := initService()
	_, err := s.stats.fetchStats(ctx, true, false)
	return err
}
