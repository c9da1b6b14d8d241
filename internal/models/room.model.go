package models

import (
	"errors"
	"fmt"
	"rentflow/internal/utils"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MaxNameLength         = 120
	MaxObservationsLength = 4000
)

type Room struct {
	BaseUUIDModel
	InspectionID uuid.UUID `gorm:"type:uuid;not null;index"  json:"inspectionId"`
	Name         string    `gorm:"type:text;not null"        json:"name"`
	RoomType     RoomType  `gorm:"type:text;not null"        json:"roomType"`
	Position     int       `gorm:"type:integer;not null"     json:"position"`
	Observations string    `gorm:"type:text"                 json:"observations"`
	Completed    bool      `gorm:"type:bool;default:false"   json:"completed"`

	Elements []Element `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"elements"`
	Photos   []Photo   `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"photos"`
}

func (r *Room) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if !r.RoomType.IsValid() {
		return fmt.Errorf("unknown room type %q", r.RoomType)
	}
	if r.Position < 0 {
		return errors.New("room position must not be negative")
	}
	return validateText("observations", r.Observations)
}

type Element struct {
	BaseUUIDModel
	RoomID       uuid.UUID                           `gorm:"type:uuid;not null;index" json:"roomId"`
	InspectionID uuid.UUID                           `gorm:"type:uuid;not null;index" json:"inspectionId"`
	Category     ElementCategory                     `gorm:"type:text;not null"       json:"category"`
	Name         string                              `gorm:"type:text;not null"       json:"name"`
	Natures      datatypes.JSONSlice[NatureTag]      `gorm:"type:jsonb"               json:"natures"`
	Condition    Condition                           `gorm:"type:text;not null"       json:"condition"`
	Absent       bool                                `gorm:"type:bool;default:false"  json:"absent"`
	Observations string                              `gorm:"type:text"                json:"observations"`
	Degradations datatypes.JSONSlice[DegradationTag] `gorm:"type:jsonb"               json:"degradations"`
}

// Normalize drops degradation tags that the current condition cannot carry.
func (e *Element) Normalize() {
	if !e.Condition.AllowsDegradations() {
		e.Degradations = nil
	}
	if e.Natures == nil {
		e.Natures = datatypes.JSONSlice[NatureTag]{}
	}
	if e.Degradations == nil {
		e.Degradations = datatypes.JSONSlice[DegradationTag]{}
	}
}

func (e *Element) Validate() error {
	if !e.Category.IsValid() {
		return fmt.Errorf("unknown element category %q", e.Category)
	}
	if err := validateName(e.Name); err != nil {
		return err
	}
	if !e.Condition.IsValid() {
		return fmt.Errorf("unknown condition %q", e.Condition)
	}
	if len(e.Natures) == 0 {
		return errors.New("element requires at least one nature")
	}

	seen := make(map[Nature]bool, len(e.Natures))
	for _, tag := range e.Natures {
		if err := tag.Validate(e.Category); err != nil {
			return err
		}
		if tag.Nature != NatureOther && seen[tag.Nature] {
			return fmt.Errorf("duplicate nature %q", tag.Nature)
		}
		seen[tag.Nature] = true
	}

	if len(e.Degradations) > 0 && !e.Condition.AllowsDegradations() {
		return fmt.Errorf("degradations are only recorded for %s or %s elements",
			ConditionDegraded, ConditionOutOfService)
	}
	for _, tag := range e.Degradations {
		if err := tag.Validate(); err != nil {
			return err
		}
	}

	return validateText("observations", e.Observations)
}

type Photo struct {
	BaseUUIDModel
	RoomID            uuid.UUID  `gorm:"type:uuid;not null;index"   json:"roomId"`
	InspectionID      uuid.UUID  `gorm:"type:uuid;not null;index"   json:"inspectionId"`
	ElementID         *uuid.UUID `gorm:"type:uuid;index"            json:"elementId,omitempty"`
	URL               string     `gorm:"type:text;not null"         json:"url"`
	ThumbnailURL      *string    `gorm:"type:text"                  json:"thumbnailUrl,omitempty"`
	ContentHash       string     `gorm:"type:char(64);not null"     json:"contentHash"`
	Type              PhotoType  `gorm:"type:text;not null"         json:"type"`
	Geolocation       *GeoPoint  `gorm:"type:jsonb;serializer:json" json:"geolocation,omitempty"`
	DeviceFingerprint *string    `gorm:"type:text"                  json:"deviceFingerprint,omitempty"`
}

func (p *Photo) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("photo url is required")
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("unknown photo type %q", p.Type)
	}
	p.ContentHash = strings.ToLower(strings.TrimSpace(p.ContentHash))
	if !utils.ValidateHash(p.ContentHash) {
		return errors.New("content hash must be a sha-256 hex digest")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}
	return nil
}

func validateText(field, text string) error {
	if len(text) > MaxObservationsLength {
		return fmt.Errorf("%s exceed %d characters", field, MaxObservationsLength)
	}
	return nil
}
