package repositories

import (
	"context"
	. "rentflow/internal/models"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AmendmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, amendment *Amendment) error
	GetByID(ctx context.Context, tx *gorm.DB, inspectionID, amendmentID uuid.UUID) (*Amendment, error)
	ListByInspection(ctx context.Context, tx *gorm.DB, inspectionID uuid.UUID) ([]*Amendment, error)
	Respond(ctx context.Context, tx *gorm.DB, amendment *Amendment) error
}

type amendmentRepository struct{}

func NewAmendmentRepository() AmendmentRepository {
	return &amendmentRepository{}
}

func (r *amendmentRepository) Create(ctx context.Context, tx *gorm.DB, amendment *Amendment) error {
	log := logger.NewWithContext(ctx, "amendmentRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(amendment).Error; err != nil {
		return log.Err("failed to create amendment", err, "inspectionID", amendment.InspectionID)
	}
	return nil
}

func (r *amendmentRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	inspectionID, amendmentID uuid.UUID,
) (*Amendment, error) {
	log := logger.NewWithContext(ctx, "amendmentRepository").Function("GetByID")

	var amendment Amendment
	if err := tx.WithContext(ctx).
		Where("id = ? AND inspection_id = ?", amendmentID, inspectionID).
		First(&amendment).Error; err != nil {
		return nil, notFoundOr(log, err, "amendment", "amendmentID", amendmentID)
	}
	return &amendment, nil
}

// ListByInspection returns amendments in creation order.
func (r *amendmentRepository) ListByInspection(
	ctx context.Context,
	tx *gorm.DB,
	inspectionID uuid.UUID,
) ([]*Amendment, error) {
	log := logger.NewWithContext(ctx, "amendmentRepository").Function("ListByInspection")

	amendments := []*Amendment{}
	if err := tx.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at ASC, id ASC").
		Find(&amendments).Error; err != nil {
		return nil, log.Err("failed to list amendments", err, "inspectionID", inspectionID)
	}
	return amendments, nil
}

// Respond persists a response only if the row is still pending, so two
// concurrent answers cannot both win.
func (r *amendmentRepository) Respond(ctx context.Context, tx *gorm.DB, amendment *Amendment) error {
	log := logger.NewWithContext(ctx, "amendmentRepository").Function("Respond")

	respondedAt := time.Now().UTC()
	if amendment.RespondedAt != nil {
		respondedAt = *amendment.RespondedAt
	}

	result := tx.WithContext(ctx).
		Model(&Amendment{}).
		Where("id = ? AND status = ?", amendment.ID, AmendmentPending).
		Updates(map[string]any{
			"status":        amendment.Status,
			"response_note": amendment.ResponseNote,
			"responded_at":  respondedAt,
		})
	if result.Error != nil {
		return log.Err("failed to record amendment response", result.Error, "amendmentID", amendment.ID)
	}
	if result.RowsAffected == 0 {
		return types.Errorf(types.ErrAmendmentAlreadyResolved, "this amendment has already been answered")
	}
	return nil
}
