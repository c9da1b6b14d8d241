package jobs

import (
	"context"
	"rentflow/config"
	"rentflow/internal/services"
	"rentflow/pkg/logger"
)

func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	service services.Service,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	exportRetryJob := NewExportRetryJob(service.Export, services.Hourly)
	if err := schedulerService.AddJob(exportRetryJob); err != nil {
		return log.Err("failed to register export retry job", err)
	}
	log.Info("Registered export retry job", "schedule", "hourly")

	return nil
}

// RunStartupJobs runs the export retry once, ahead of its first hourly run.
func RunStartupJobs(ctx context.Context, schedulerService *services.SchedulerService) error {
	return schedulerService.RunJob(ctx, ExportRetryJobName)
}
