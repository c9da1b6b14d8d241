package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseUUIDModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime"       json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"       json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index"                json:"-"`
}

// BeforeCreate assigns a time-ordered v7 identifier when none was set.
func (b *BaseUUIDModel) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

// EnsureID assigns a v7 identifier if the model has none yet.
func (b *BaseUUIDModel) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.Must(uuid.NewV7())
	}
}
