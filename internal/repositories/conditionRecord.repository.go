package repositories

import (
	"context"
	. "rentflow/internal/models"
	"rentflow/internal/types"
	"rentflow/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConditionRecordRepository writes the rooms, elements, photos, meters and
// keys hanging off an inspection. Callers own the lifecycle checks.
type ConditionRecordRepository interface {
	CreateRoom(ctx context.Context, tx *gorm.DB, room *Room) error
	UpdateRoom(ctx context.Context, tx *gorm.DB, room *Room, fields ...string) error
	CreateElement(ctx context.Context, tx *gorm.DB, element *Element) error
	ReplaceElement(ctx context.Context, tx *gorm.DB, element *Element) error
	CreatePhoto(ctx context.Context, tx *gorm.DB, photo *Photo) error
	UpsertMeter(ctx context.Context, tx *gorm.DB, meter *Meter) error
	UpsertKey(ctx context.Context, tx *gorm.DB, key *Key) error
}

type conditionRecordRepository struct{}

func NewConditionRecordRepository() ConditionRecordRepository {
	return &conditionRecordRepository{}
}

func (r *conditionRecordRepository) CreateRoom(ctx context.Context, tx *gorm.DB, room *Room) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("CreateRoom")

	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(room).Error; err != nil {
		return log.Err("failed to create room", err, "inspectionID", room.InspectionID)
	}
	return nil
}

func (r *conditionRecordRepository) UpdateRoom(ctx context.Context, tx *gorm.DB, room *Room, fields ...string) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("UpdateRoom")

	if len(fields) == 0 {
		return nil
	}

	result := tx.WithContext(ctx).
		Model(room).
		Omit(clause.Associations).
		Select(fields).
		Updates(room)
	if result.Error != nil {
		return log.Err("failed to update room", result.Error, "roomID", room.ID)
	}
	if result.RowsAffected == 0 {
		return types.Errorf(types.ErrNotFound, "room not found")
	}
	return nil
}

func (r *conditionRecordRepository) CreateElement(ctx context.Context, tx *gorm.DB, element *Element) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("CreateElement")

	if err := tx.WithContext(ctx).Create(element).Error; err != nil {
		return log.Err("failed to create element", err, "roomID", element.RoomID)
	}
	return nil
}

var elementColumns = []string{
	"category",
	"name",
	"natures",
	"condition",
	"absent",
	"observations",
	"degradations",
}

// ReplaceElement overwrites every editable column of the element.
func (r *conditionRecordRepository) ReplaceElement(ctx context.Context, tx *gorm.DB, element *Element) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("ReplaceElement")

	result := tx.WithContext(ctx).
		Model(element).
		Select(elementColumns).
		Updates(element)
	if result.Error != nil {
		return log.Err("failed to replace element", result.Error, "elementID", element.ID)
	}
	if result.RowsAffected == 0 {
		return types.Errorf(types.ErrNotFound, "element not found")
	}
	return nil
}

func (r *conditionRecordRepository) CreatePhoto(ctx context.Context, tx *gorm.DB, photo *Photo) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("CreatePhoto")

	if err := tx.WithContext(ctx).Create(photo).Error; err != nil {
		return log.Err("failed to attach photo", err, "roomID", photo.RoomID)
	}
	return nil
}

func inspectionTypeConflict(updates ...string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "inspection_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns(append(updates, "updated_at", "deleted_at")),
	}
}

// UpsertMeter replaces the reading for (inspection, type) and reloads the
// stored row so the caller sees the surviving ID.
func (r *conditionRecordRepository) UpsertMeter(ctx context.Context, tx *gorm.DB, meter *Meter) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("UpsertMeter")

	db := tx.WithContext(ctx)
	if err := db.
		Clauses(inspectionTypeConflict("serial_number", "index_reading", "photo_url", "no_gas_service")).
		Create(meter).Error; err != nil {
		return log.Err("failed to upsert meter", err, "inspectionID", meter.InspectionID, "type", meter.Type)
	}

	var stored Meter
	if err := db.
		Where("inspection_id = ? AND type = ?", meter.InspectionID, meter.Type).
		First(&stored).Error; err != nil {
		return log.Err("failed to reload meter", err, "inspectionID", meter.InspectionID, "type", meter.Type)
	}
	*meter = stored
	return nil
}

func (r *conditionRecordRepository) UpsertKey(ctx context.Context, tx *gorm.DB, key *Key) error {
	log := logger.NewWithContext(ctx, "conditionRecordRepository").Function("UpsertKey")

	db := tx.WithContext(ctx)
	if err := db.
		Clauses(inspectionTypeConflict("quantity")).
		Create(key).Error; err != nil {
		return log.Err("failed to upsert key", err, "inspectionID", key.InspectionID, "type", key.Type)
	}

	var stored Key
	if err := db.
		Where("inspection_id = ? AND type = ?", key.InspectionID, key.Type).
		First(&stored).Error; err != nil {
		return log.Err("failed to reload key", err, "inspectionID", key.InspectionID, "type", key.Type)
	}
	*key = stored
	return nil
}
