package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxAmendmentDescriptionLength = 2000
	MaxResponseNoteLength         = 2000
)

type AmendmentStatus string

const (
	AmendmentPending  AmendmentStatus = "PENDING"
	AmendmentAccepted AmendmentStatus = "ACCEPTED"
	AmendmentRejected AmendmentStatus = "REJECTED"
)

// IsResponse reports whether s is a terminal answer an owner may give.
func (s AmendmentStatus) IsResponse() bool {
	return s == AmendmentAccepted || s == AmendmentRejected
}

type Amendment struct {
	BaseUUIDModel
	InspectionID  uuid.UUID       `gorm:"type:uuid;not null;index"              json:"inspectionId"`
	Description   string          `gorm:"type:text;not null"                    json:"description"`
	Status        AmendmentStatus `gorm:"type:text;not null;default:'PENDING'"  json:"status"`
	RequestedByID uuid.UUID       `gorm:"type:uuid;not null"                    json:"requestedById"`
	ResponseNote  *string         `gorm:"type:text"                             json:"responseNote,omitempty"`
	RespondedAt   *time.Time      `gorm:"type:timestamptz"                      json:"respondedAt,omitempty"`
}

func ValidateAmendmentDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", errors.New("description is required")
	}
	if len(description) > MaxAmendmentDescriptionLength {
		return "", fmt.Errorf("description exceeds %d characters", MaxAmendmentDescriptionLength)
	}
	return description, nil
}

func ValidateResponseNote(note *string) error {
	if note != nil && len(*note) > MaxResponseNoteLength {
		return fmt.Errorf("response note exceeds %d characters", MaxResponseNoteLength)
	}
	return nil
}
