package repositories

import (
	"context"
	. "rentflow/internal/models"
	"rentflow/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationRepository reads tenancy applications owned by the listings side.
type ApplicationRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*TenancyApplication, error)
}

type applicationRepository struct{}

func NewApplicationRepository() ApplicationRepository {
	return &applicationRepository{}
}

func (r *applicationRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*TenancyApplication, error) {
	log := logger.NewWithContext(ctx, "applicationRepository").Function("GetByID")

	var application TenancyApplication
	if err := tx.WithContext(ctx).First(&application, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(log, err, "tenancy application", "applicationID", id)
	}
	return &application, nil
}
