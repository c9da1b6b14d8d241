package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Meter holds one reading per (inspection, type); later writes replace it.
type Meter struct {
	BaseUUIDModel
	InspectionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_meters_inspection_type" json:"inspectionId"`
	Type         MeterType       `gorm:"type:text;not null;uniqueIndex:idx_meters_inspection_type" json:"type"`
	SerialNumber string          `gorm:"type:text"                                                json:"serialNumber"`
	IndexReading decimal.Decimal `gorm:"type:numeric(14,3)"                                       json:"indexReading"`
	PhotoURL     *string         `gorm:"type:text"                                                json:"photoUrl,omitempty"`
	NoGasService bool            `gorm:"type:bool;default:false"                                  json:"noGasService"`
}

func (m *Meter) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("unknown meter type %q", m.Type)
	}
	if m.NoGasService {
		if m.Type != MeterGas {
			return errors.New("no gas service only applies to gas meters")
		}
		return nil
	}
	if m.IndexReading.IsNegative() {
		return errors.New("index reading must not be negative")
	}
	if len(m.SerialNumber) > MaxNameLength {
		return fmt.Errorf("serial number exceeds %d characters", MaxNameLength)
	}
	return nil
}

// Key is a handed-over key count per (inspection, label).
type Key struct {
	BaseUUIDModel
	InspectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_keys_inspection_type" json:"inspectionId"`
	Type         string    `gorm:"type:text;not null;uniqueIndex:idx_keys_inspection_type" json:"type"`
	Quantity     int       `gorm:"type:integer;not null;default:0"                        json:"quantity"`
}

func (Key) TableName() string {
	return "inspection_keys"
}

func (k *Key) Validate() error {
	k.Type = strings.TrimSpace(k.Type)
	if k.Type == "" {
		return errors.New("key type is required")
	}
	if len(k.Type) > MaxNameLength {
		return fmt.Errorf("key type exceeds %d characters", MaxNameLength)
	}
	if k.Quantity < 0 {
		return errors.New("key quantity must not be negative")
	}
	return nil
}
