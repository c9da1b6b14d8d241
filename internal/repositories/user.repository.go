package repositories

import (
	"context"
	"rentflow/internal/constants"
	"rentflow/internal/database"
	. "rentflow/internal/models"
	"rentflow/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error)
	ClearUserCache(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	cache database.CacheClient
}

func NewUserRepository(cache database.CacheClient) UserRepository {
	return &userRepository{cache: cache}
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error) {
	log := logger.NewWithContext(ctx, "userRepository").Function("GetByID")

	var user User
	found, err := database.NewCacheBuilder(r.cache, id).
		WithHash(constants.UserCachePrefix).
		WithContext(ctx).
		Get(&user)
	if err != nil {
		log.Warn("failed to get user from cache", "userID", id, "error", err)
	}
	if found {
		return &user, nil
	}

	if err := tx.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(log, err, "user", "userID", id)
	}

	if err := database.NewCacheBuilder(r.cache, id).
		WithHash(constants.UserCachePrefix).
		WithStruct(&user).
		WithTTL(constants.UserCacheExpiry).
		WithContext(ctx).
		Set(); err != nil {
		log.Warn("failed to add user to cache", "userID", id, "error", err)
	}

	return &user, nil
}

func (r *userRepository) ClearUserCache(ctx context.Context, id uuid.UUID) error {
	return database.NewCacheBuilder(r.cache, id).
		WithHash(constants.UserCachePrefix).
		WithContext(ctx).
		Delete()
}
