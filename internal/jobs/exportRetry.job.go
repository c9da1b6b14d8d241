package jobs

import (
	"context"
	"rentflow/internal/services"
	"rentflow/pkg/logger"
)

const (
	ExportRetryJobName   = "ExportRetry"
	exportRetryBatchSize = 50
)

// PendingExporter retries artifact generation for signed inspections.
type PendingExporter interface {
	ExportPending(ctx context.Context, limit int) (int, error)
}

type ExportRetryJob struct {
	exports  PendingExporter
	log      logger.Logger
	schedule services.Schedule
}

func NewExportRetryJob(exports PendingExporter, schedule services.Schedule) *ExportRetryJob {
	log := logger.New("exportRetryJob")
	log.Info("Creating new export retry job", "schedule", schedule)

	return &ExportRetryJob{
		exports:  exports,
		log:      log,
		schedule: schedule,
	}
}

func (j *ExportRetryJob) Name() string {
	return ExportRetryJobName
}

func (j *ExportRetryJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	exported, err := j.exports.ExportPending(ctx, exportRetryBatchSize)
	if err != nil {
		return log.Err("some pending exports failed", err, "exported", exported)
	}

	if exported > 0 {
		log.Info("Pending exports completed", "exported", exported)
	}
	return nil
}

func (j *ExportRetryJob) Schedule() services.Schedule {
	return j.schedule
}
