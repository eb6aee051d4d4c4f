package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/platinummonkey/labstock/pkg/config"
	"github.com/platinummonkey/labstock/pkg/observability"
	"github.com/platinummonkey/labstock/pkg/storage"
)

func scheduleJobs(s *observability.Scheduler, cfg *config.Config, db *sql.DB, store *storage.Store, metrics *observability.Metrics) error {
	if err := s.Add("stats", cfg.Jobs.StatsSchedule, statsJob(db, store, metrics)); err != nil {
		return err
	}
	if cfg.Auth.SessionIdleTimeout > 0 {
		if err := s.Add("token_sweep", cfg.Jobs.TokenSweepSchedule, sweepJob(db, store, cfg.Auth.SessionIdleTimeout, time.Now)); err != nil {
			return err
		}
	}
	return nil
}

// statsJob refreshes the entity and connection pool gauges.
func statsJob(db *sql.DB, store *storage.Store, metrics *observability.Metrics) observability.JobFunc {
	return func(ctx context.Context) error {
		counts, err := store.EntityCounts(ctx, db)
		if err != nil {
			return err
		}
		metrics.SetEntityCounts(counts)
		metrics.ObserveDBStats(db.Stats())
		return nil
	}
}

// sweepJob removes tokens idle for longer than idle.
func sweepJob(db *sql.DB, store *storage.Store, idle time.Duration, now func() time.Time) observability.JobFunc {
	return func(ctx context.Context) error {
		n, err := store.SweepIdleTokens(ctx, db, now().UTC().Add(-idle))
		if err != nil {
			return err
		}
		if n > 0 {
			observability.FromContext(ctx).WithField("tokens", n).Info("Swept idle tokens")
		}
		return nil
	}
}
