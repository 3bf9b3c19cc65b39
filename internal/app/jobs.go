package app

import (
	"context"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/config"
	"github.com/garyellow/ntpu-section-swap/internal/sentry"
)

// startBackgroundJobs launches the periodic sweep, snapshot backups and
// store gauges. Jobs stop when ctx is canceled.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.cfg.Match.SweepInterval > 0 {
		a.wg.Go(func() { a.every(ctx, "sweep", a.cfg.Match.SweepInterval, true, a.runSweep) })
	}
	if a.backup != nil && a.cfg.R2.BackupInterval > 0 {
		a.wg.Go(func() { a.every(ctx, "backup", a.cfg.R2.BackupInterval, false, a.runBackup) })
	}
	a.wg.Go(func() { a.every(ctx, "store_metrics", config.StoreMetricsInterval, true, a.updateStoreMetrics) })
}

// every runs fn on each tick, and once up front when immediate is set. A
// panicking run is reported and does not stop the job.
func (a *Application) every(ctx context.Context, name string, interval time.Duration, immediate bool, fn func(context.Context)) {
	log := a.logger.WithField("job", name)
	log.WithField("interval", interval.String()).Info("Background job started")

	run := func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Panic in background job")
				sentry.RecoverValue(ctx, r)
			}
		}()
		fn(ctx)
	}

	if immediate {
		run()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Background job stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}

// runSweep re-evaluates recent and unfinished intents. With R2 enabled only
// the lock holder sweeps.
func (a *Application) runSweep(ctx context.Context) {
	if a.backup != nil && !a.backup.Lead(ctx) {
		a.logger.Debug("Not the leader; skipping sweep")
		return
	}

	sweepCtx, cancel := context.WithTimeout(ctx, config.SweepRun)
	defer cancel()
	if _, err := a.engine.Sweep(sweepCtx, a.cfg.Match.SweepLimit); err != nil {
		a.logger.WithError(err).Warn("Sweep failed")
		sentry.CaptureExceptionWithContext(ctx, err)
	}
}

func (a *Application) runBackup(ctx context.Context) {
	if !a.backup.Lead(ctx) {
		return
	}
	backupCtx, cancel := context.WithTimeout(ctx, config.SnapshotTransfer)
	defer cancel()
	if _, err := a.backup.Backup(backupCtx, a.db); err != nil {
		a.logger.WithError(err).Warn("Snapshot backup failed")
	}
}

func (a *Application) updateStoreMetrics(ctx context.Context) {
	counters := []struct {
		table string
		count func(context.Context) (int, error)
	}{
		{"intents", a.db.CountIntents},
		{"match_records", a.db.CountMatches},
		{"profiles", a.db.CountProfiles},
	}
	for _, ct := range counters {
		n, err := ct.count(ctx)
		if err != nil {
			a.logger.WithError(err).WithField("table", ct.table).Debug("Failed to count rows")
			continue
		}
		a.metrics.SetStoreRows(ct.table, n)
	}
}
