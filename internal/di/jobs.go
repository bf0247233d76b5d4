package di

import (
	"fmt"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the background jobs. Optional jobs stay nil when their
// feature is disabled.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) *JobInstances {
	jobs := &JobInstances{
		CacheCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
		Maintenance:  reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log),
	}
	if container.CurrencyService.RefreshEnabled() {
		jobs.RateRefresh = currency.NewRefreshJob(container.CurrencyService, log)
	}
	if container.BackupService.Enabled() {
		jobs.Backup = reliability.NewBackupJob(container.BackupService)
	}
	return jobs
}

// ScheduleJobs adds every enabled job to sched with its configured schedule.
func ScheduleJobs(sched *scheduler.Scheduler, jobs *JobInstances, cfg *config.Config) error {
	entries := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.CacheCleanupSchedule, jobs.CacheCleanup},
		{cfg.MaintenanceSchedule, jobs.Maintenance},
		{cfg.Currency.RefreshSchedule, jobs.RateRefresh},
		{cfg.Backup.Schedule, jobs.Backup},
	}

	for _, e := range entries {
		if e.job == nil {
			continue
		}
		if err := sched.AddJob(e.schedule, e.job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", e.job.Name(), err)
		}
	}
	return nil
}
