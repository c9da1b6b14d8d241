package models

import "github.com/google/uuid"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationAccepted ApplicationStatus = "ACCEPTED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// TenancyApplication is managed by the listings side of the platform; this
// service only reads it to resolve the two inspection parties.
type TenancyApplication struct {
	BaseUUIDModel
	Reference     string            `gorm:"type:text;uniqueIndex"    json:"reference"`
	OwnerID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"ownerId"`
	TenantID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"tenantId"`
	Status        ApplicationStatus `gorm:"type:text;not null"       json:"status"`
	PropertyLabel string            `gorm:"type:text"                json:"propertyLabel"`
}

func (a *TenancyApplication) IsAccepted() bool {
	return a.Status == ApplicationAccepted
}
