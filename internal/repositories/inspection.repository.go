package repositories

import (
	"context"
	"errors"
	"rentflow/internal/constants"
	"rentflow/internal/database"
	. "rentflow/internal/models"
	"rentflow/internal/types"
	"rentflow/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InspectionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inspection *Inspection) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Inspection, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Inspection, error)
	GetByApplicationAndKind(
		ctx context.Context,
		tx *gorm.DB,
		applicationID uuid.UUID,
		kind InspectionKind,
	) (*Inspection, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, inspection *Inspection, fields ...string) error
	ListPendingExport(ctx context.Context, tx *gorm.DB, limit int) ([]*Inspection, error)
	ClearCache(ctx context.Context, id uuid.UUID) error
}

type inspectionRepository struct {
	cache database.CacheClient
}

func NewInspectionRepository(cache database.CacheClient) InspectionRepository {
	return &inspectionRepository{cache: cache}
}

func preloadTree(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Rooms", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("Rooms.Elements", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Rooms.Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Meters", func(db *gorm.DB) *gorm.DB {
			return db.Order("type ASC")
		}).
		Preload("Keys", func(db *gorm.DB) *gorm.DB {
			return db.Order("type ASC")
		})
}

const createSavepoint = "inspection_create"

// Create inserts the inspection row and must run inside a transaction. A
// unique violation on (application, kind) comes back as a
// DuplicateInspectionError naming the existing record.
func (r *inspectionRepository) Create(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
	log := logger.NewWithContext(ctx, "inspectionRepository").Function("Create")

	db := tx.WithContext(ctx)
	if err := db.SavePoint(createSavepoint).Error; err != nil {
		return log.Err("failed to set savepoint", err)
	}

	err := db.Omit(clause.Associations).Create(inspection).Error
	if err == nil {
		return nil
	}

	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return log.Err("failed to create inspection", err, "applicationID", inspection.ApplicationID)
	}

	if rbErr := db.RollbackTo(createSavepoint).Error; rbErr != nil {
		return log.Err("failed to roll back to savepoint", rbErr)
	}

	existing, lookupErr := r.GetByApplicationAndKind(ctx, tx, inspection.ApplicationID, inspection.Kind)
	if lookupErr != nil {
		return log.Err("failed to resolve duplicate inspection", lookupErr,
			"applicationID", inspection.ApplicationID,
			"kind", inspection.Kind,
		)
	}
	return &types.DuplicateInspectionError{InspectionID: existing.ID}
}

// GetByID serves the read path. The cached copy omits signing-link columns,
// so writers load through GetForUpdate instead.
func (r *inspectionRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Inspection, error) {
	log := logger.NewWithContext(ctx, "inspectionRepository").Function("GetByID")

	var cached Inspection
	found, err := database.NewCacheBuilder(r.cache, id).
		WithHash(constants.InspectionCachePrefix).
		WithContext(ctx).
		Get(&cached)
	if err != nil {
		log.Warn("failed to read inspection cache", "inspectionID", id, "error", err)
	}
	if found {
		return &cached, nil
	}

	var inspection Inspection
	if err := preloadTree(tx.WithContext(ctx)).First(&inspection, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(log, err, "inspection", "inspectionID", id)
	}

	if err := database.NewCacheBuilder(r.cache, id).
		WithHash(constants.InspectionCachePrefix).
		WithStruct(&inspection).
		WithTTL(constants.InspectionCacheExpiry).
		WithContext(ctx).
		Set(); err != nil {
		log.Warn("failed to cache inspection", "inspectionID", id, "error", err)
	}

	return &inspection, nil
}

// GetForUpdate locks the inspection row for the rest of tx and loads the
// tree from the database, bypassing the cache.
func (r *inspectionRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Inspection, error) {
	log := logger.NewWithContext(ctx, "inspectionRepository").Function("GetForUpdate")

	var inspection Inspection
	err := preloadTree(tx.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inspection, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(log, err, "inspection", "inspectionID", id)
	}

	return &inspection, nil
}

func (r *inspectionRepository) GetByApplicationAndKind(
	ctx context.Context,
	tx *gorm.DB,
	applicationID uuid.UUID,
	kind InspectionKind,
) (*Inspection, error) {
	log := logger.NewWithContext(ctx, "inspectionRepository").Function("GetByApplicationAndKind")

	var inspection Inspection
	err := tx.WithContext(ctx).
		Where("application_id = ? AND kind = ?", applicationID, kind).
		First(&inspection).Error
	if err != nil {
		return nil, notFoundOr(log, err, "inspection", "applicationID", applicationID, "kind", kind)
	}

	return &inspection, nil
}

// UpdateFields writes the named columns of inspection and drops the cached tree.
func (r *inspectionRepository) UpdateFields(
	ctx context.Context,
	tx *gorm.DB,
	inspection *Inspection,
	fields ...string,
) error {
	log := logger.NewWithContext(ctx, "inspectionRepository").Function("UpdateFields")

	if len(fields) == 0 {
		return nil
	}

	result := tx.WithContext(ctx).
		Model(inspection).
		Omit(clause.Associations).
		Select(fields).
		Updates(inspection)
	if result.Error != nil {
		return log.Err("failed to update inspection", result.Error, "inspectionID", inspection.ID, "fields", fields)
	}
	if result.RowsAffected == 0 {
		return log.ErrorWithType(types.ErrNotFound, "inspection not found", "inspectionID", inspection.ID)
	}

	if err := r.ClearCache(ctx, inspection.ID); err != nil {
		log.Warn("failed to clear inspection cache", "inspectionID", inspection.ID, "error", err)
	}

	return nil
}

// ListPendingExport returns signed inspections that still have no artifact,
// oldest signature first.
func (r *inspectionRepository) ListPendingExport(ctx context.Context, tx *gorm.DB, limit int) ([]*Inspection, error) {
	log := logger.NewWithContext(ctx, "inspectionRepository").Function("ListPendingExport")

	var inspections []*Inspection
	if err := tx.WithContext(ctx).
		Select("id").
		Where("status = ? AND artifact_url IS NULL", StatusSigned).
		Order("occupant_signed_at ASC").
		Limit(limit).
		Find(&inspections).Error; err != nil {
		return nil, log.Err("failed to list inspections pending export", err)
	}

	return inspections, nil
}

func (r *inspectionRepository) ClearCache(ctx context.Context, id uuid.UUID) error {
	return database.NewCacheBuilder(r.cache, id).
		WithHash(constants.InspectionCachePrefix).
		WithContext(ctx).
		Delete()
}

// notFoundOr maps gorm.ErrRecordNotFound to the NOT_FOUND kind and logs
// anything else as an internal failure.
// ClearAfterCommit drops the cached tree once the writing transaction has
// committed. A read between the clear in UpdateFields and the commit can
// cache the old row.
func ClearAfterCommit(ctx context.Context, repo InspectionRepository, inspectionID uuid.UUID) {
	if err := repo.ClearCache(ctx, inspectionID); err != nil {
		logger.NewWithContext(ctx, "inspectionRepository").Function("ClearAfterCommit").
			Warn("failed to clear inspection cache", "inspectionID", inspectionID, "error", err)
	}
}

func notFoundOr(log logger.Logger, err error, entity string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Errorf(types.ErrNotFound, "%s not found", entity)
	}
	return log.Err("failed to load "+entity, err, args...)
}
