package services

import (
	"context"
	"errors"
	"rentflow/internal/constants"
	"rentflow/internal/database"
	"rentflow/internal/events"
	"rentflow/internal/exporter"
	"rentflow/internal/lifecycle"
	"rentflow/internal/models"
	"rentflow/internal/repositories"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExportLocker keeps two exports of the same inspection from running at once.
type ExportLocker interface {
	Acquire(ctx context.Context, inspectionID uuid.UUID) (bool, error)
	Release(ctx context.Context, inspectionID uuid.UUID) error
}

type cacheExportLocker struct {
	cache database.CacheClient
}

func NewCacheExportLocker(cache database.CacheClient) ExportLocker {
	return &cacheExportLocker{cache: cache}
}

func (l *cacheExportLocker) Acquire(ctx context.Context, inspectionID uuid.UUID) (bool, error) {
	return database.NewCacheBuilder(l.cache, inspectionID).
		WithHash(constants.ExportLockPrefix).
		WithValue(time.Now().UTC().Format(time.RFC3339)).
		WithTTL(constants.ExportLockExpiry).
		WithContext(ctx).
		SetIfAbsent()
}

func (l *cacheExportLocker) Release(ctx context.Context, inspectionID uuid.UUID) error {
	return database.NewCacheBuilder(l.cache, inspectionID).
		WithHash(constants.ExportLockPrefix).
		WithContext(ctx).
		Delete()
}

// ExportService generates the durable artifact of a signed inspection and
// locks it. Generation may be retried any number of times; each success
// replaces the stored reference and is announced exactly once.
type ExportService struct {
	transaction Transactor
	inspections repositories.InspectionRepository
	exporter    exporter.Exporter
	locks       ExportLocker
	events      events.Publisher
	now         func() time.Time
	log         logger.Logger
}

func NewExportService(
	transaction Transactor,
	inspections repositories.InspectionRepository,
	exporter exporter.Exporter,
	locks ExportLocker,
	publisher events.Publisher,
) *ExportService {
	return &ExportService{
		transaction: transaction,
		inspections: inspections,
		exporter:    exporter,
		locks:       locks,
		events:      publisher,
		now:         time.Now,
		log:         logger.New("exportService"),
	}
}

// Generate exports the inspection and stores the artifact reference. Errors
// from the exporter come back as EXPORT_FAILED and leave the inspection as
// it was.
func (s *ExportService) Generate(ctx context.Context, inspectionID uuid.UUID) (*models.Inspection, error) {
	log := logger.NewWithContext(ctx, "exportService").Function("Generate")

	acquired, err := s.locks.Acquire(ctx, inspectionID)
	if err != nil {
		log.Warn("export lock unavailable, continuing without it", "inspectionID", inspectionID, "error", err)
	} else if !acquired {
		return nil, types.Errorf(types.ErrExportFailed, "the document is already being generated, try again shortly")
	} else {
		defer func() {
			if err := s.locks.Release(context.WithoutCancel(ctx), inspectionID); err != nil {
				log.Warn("failed to release export lock", "inspectionID", inspectionID, "error", err)
			}
		}()
	}

	var snapshot *models.Inspection
	err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := s.inspections.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanExport(inspection); err != nil {
			return err
		}
		snapshot = inspection
		return nil
	})
	if err != nil {
		return nil, err
	}

	reference, err := s.exporter.Export(ctx, snapshot)
	if err != nil {
		log.Er("document exporter failed", err, "inspectionID", inspectionID)
		return nil, types.Errorf(types.ErrExportFailed, "the document could not be generated, try again later")
	}

	var stored *models.Inspection
	err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := s.inspections.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if err := lifecycle.MarkExported(inspection, reference, s.now()); err != nil {
			return err
		}
		if err := s.inspections.UpdateFields(
			ctx, tx, inspection,
			"artifact_url", "artifact_generated_at", "status",
		); err != nil {
			return err
		}
		stored = inspection
		return nil
	})
	if err != nil {
		return nil, err
	}
	repositories.ClearAfterCommit(ctx, s.inspections, inspectionID)

	event := events.NewInspectionEvent(events.INSPECTION_EXPORTED, stored.ID, uuid.Nil, map[string]any{
		"artifactUrl": reference,
		"ownerId":     stored.OwnerID,
		"occupantId":  stored.OccupantID,
	})
	if err := s.events.Publish(events.INSPECTION_CHANNEL, event); err != nil {
		log.Warn("failed to announce exported inspection", "inspectionID", stored.ID, "error", err)
	}

	log.Info("Inspection exported", "inspectionID", stored.ID, "artifact", reference)
	return stored, nil
}

// ExportPending retries every signed inspection still missing its artifact.
// It returns how many succeeded; failures are joined into the error.
func (s *ExportService) ExportPending(ctx context.Context, limit int) (int, error) {
	log := s.log.Function("ExportPending")

	var pending []*models.Inspection
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		pending, err = s.inspections.ListPendingExport(ctx, tx, limit)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	exported := 0
	var errs []error
	for _, inspection := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Generate(ctx, inspection.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		exported++
	}

	log.Info("Pending exports processed", "pending", len(pending), "exported", exported, "failed", len(errs))
	return exported, errors.Join(errs...)
}
