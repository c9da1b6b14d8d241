package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	BaseUUIDModel
	FirstName   string     `gorm:"type:text"               json:"firstName"`
	LastName    string     `gorm:"type:text"               json:"lastName"`
	FullName    string     `gorm:"type:text"               json:"fullName"`
	DisplayName string     `gorm:"type:text"               json:"displayName"`
	Email       *string    `gorm:"type:text;uniqueIndex"   json:"email"`
	IsActive    bool       `gorm:"type:bool;default:true"  json:"isActive"`
	LastLoginAt *time.Time `gorm:"type:timestamp"          json:"lastLoginAt,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.EnsureID()
	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.DisplayName == "" {
		u.DisplayName = u.FullName
	}
	return nil
}

// UserProfile represents public user profile information
type UserProfile struct {
	ID          string  `json:"id"`
	FullName    string  `json:"fullName"`
	DisplayName string  `json:"displayName"`
	Email       *string `json:"email,omitempty"`
}

func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:          u.ID.String(),
		FullName:    u.FullName,
		DisplayName: u.DisplayName,
		Email:       u.Email,
	}
}
