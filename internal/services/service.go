package services

import (
	"context"
	"rentflow/config"
	"rentflow/internal/database"
	"rentflow/internal/events"
	"rentflow/internal/exporter/local"
	"rentflow/internal/models"
	"rentflow/internal/repositories"

	"github.com/google/uuid"
)

// ArtifactGenerator is the export entry point used by the signing workflow.
type ArtifactGenerator interface {
	Generate(ctx context.Context, inspectionID uuid.UUID) (*models.Inspection, error)
}

type Service struct {
	Transaction Transactor
	SigningLink *SigningLinkService
	Export      *ExportService
	Scheduler   *SchedulerService
}

func New(
	db database.DB,
	config config.Config,
	repos repositories.Repository,
	eventBus events.Publisher,
) (Service, error) {
	transactionService := NewTransactionService(db)

	fileExporter, err := local.New(config.ArtifactPath)
	if err != nil {
		return Service{}, err
	}

	exportService := NewExportService(
		transactionService,
		repos.Inspection,
		fileExporter,
		NewCacheExportLocker(db.Cache.General),
		eventBus,
	)

	return Service{
		Transaction: transactionService,
		SigningLink: NewSigningLinkService(config),
		Export:      exportService,
		Scheduler:   NewSchedulerService(),
	}, nil
}
