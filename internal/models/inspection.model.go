package models

import (
	"time"

	"github.com/google/uuid"
)

type InspectionStatus string

const (
	StatusDraft            InspectionStatus = "DRAFT"
	StatusPendingSignature InspectionStatus = "PENDING_SIGNATURE"
	StatusSigned           InspectionStatus = "SIGNED"
	StatusLocked           InspectionStatus = "LOCKED"
)

// IsFinalized reports whether condition content is frozen.
func (s InspectionStatus) IsFinalized() bool {
	return s == StatusSigned || s == StatusLocked
}

type InspectionKind string

const (
	KindEntry InspectionKind = "ENTRY"
	KindExit  InspectionKind = "EXIT"
)

func (k InspectionKind) IsValid() bool {
	return k == KindEntry || k == KindExit
}

type SignerRole string

const (
	RoleOwner    SignerRole = "OWNER"
	RoleOccupant SignerRole = "OCCUPANT"
)

type GeoPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Signature is provenance metadata captured with a signer's drawing. None of
// the device fields are authentication factors.
type Signature struct {
	SVG               string    `json:"svg"`
	SignedAt          time.Time `json:"signedAt"`
	DeviceFingerprint string    `json:"deviceFingerprint,omitempty"`
	UserAgent         string    `json:"userAgent,omitempty"`
	IPAddress         *string   `json:"ipAddress,omitempty"`
	Geolocation       *GeoPoint `json:"geolocation,omitempty"`
}

type Inspection struct {
	BaseUUIDModel
	ApplicationID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_inspections_application_kind" json:"applicationId"`
	Kind          InspectionKind   `gorm:"type:text;not null;uniqueIndex:idx_inspections_application_kind" json:"kind"`
	Status        InspectionStatus `gorm:"type:text;not null;default:'DRAFT';index"                        json:"status"`

	OwnerID               uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	OccupantID            uuid.UUID `gorm:"type:uuid;not null;index" json:"occupantId"`
	OccupantPresent       bool      `gorm:"type:bool;default:true"   json:"occupantPresent"`
	RepresentativeName    *string   `gorm:"type:text"                json:"representativeName,omitempty"`
	RepresentativeMandate *string   `gorm:"type:text"                json:"representativeMandate,omitempty"`

	GeneralObservations string  `gorm:"type:text" json:"generalObservations"`
	OccupantReserves    *string `gorm:"type:text" json:"occupantReserves,omitempty"`

	ArtifactURL         *string    `gorm:"type:text"        json:"artifactUrl,omitempty"`
	ArtifactGeneratedAt *time.Time `gorm:"type:timestamptz" json:"artifactGeneratedAt,omitempty"`

	OwnerSignature    *Signature `gorm:"type:jsonb;serializer:json" json:"ownerSignature,omitempty"`
	OwnerSignedAt     *time.Time `gorm:"type:timestamptz"           json:"ownerSignedAt,omitempty"`
	OccupantSignature *Signature `gorm:"type:jsonb;serializer:json" json:"occupantSignature,omitempty"`
	OccupantSignedAt  *time.Time `gorm:"type:timestamptz"           json:"occupantSignedAt,omitempty"`

	SigningLinkID        *uuid.UUID `gorm:"type:uuid"        json:"-"`
	SigningLinkIssuedAt  *time.Time `gorm:"type:timestamptz" json:"-"`
	SigningLinkExpiresAt *time.Time `gorm:"type:timestamptz" json:"-"`
	SigningLinkSentAt    *time.Time `gorm:"type:timestamptz" json:"signingLinkSentAt,omitempty"`

	Amended        bool       `gorm:"type:bool;default:false;not null" json:"amended"`
	LastActivityAt *time.Time `gorm:"type:timestamptz"                 json:"lastActivityAt,omitempty"`
	LastDevice     *string    `gorm:"type:text"                        json:"-"`

	Rooms  []Room  `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"rooms"`
	Meters []Meter `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"meters"`
	Keys   []Key   `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"keys"`
}

// PartyRole returns the role userID plays on the inspection, or "" when the
// user is neither party.
func (i *Inspection) PartyRole(userID uuid.UUID) SignerRole {
	switch userID {
	case uuid.Nil:
		return ""
	case i.OwnerID:
		return RoleOwner
	case i.OccupantID:
		return RoleOccupant
	}
	return ""
}

func (i *Inspection) HasArtifact() bool {
	return i.ArtifactURL != nil && *i.ArtifactURL != ""
}

// FindRoom returns the room with the given ID from the loaded tree.
func (i *Inspection) FindRoom(roomID uuid.UUID) *Room {
	for idx := range i.Rooms {
		if i.Rooms[idx].ID == roomID {
			return &i.Rooms[idx]
		}
	}
	return nil
}

// FindElement searches every loaded room for the element.
func (i *Inspection) FindElement(elementID uuid.UUID) (*Room, *Element) {
	for r := range i.Rooms {
		room := &i.Rooms[r]
		for e := range room.Elements {
			if room.Elements[e].ID == elementID {
				return room, &room.Elements[e]
			}
		}
	}
	return nil, nil
}

// NextRoomPosition is one past the highest position in use.
func (i *Inspection) NextRoomPosition() int {
	next := 0
	for _, room := range i.Rooms {
		if room.Position >= next {
			next = room.Position + 1
		}
	}
	return next
}

type RoomSummary struct {
	RoomID       uuid.UUID `json:"roomId"`
	Name         string    `json:"name"`
	Completed    bool      `json:"completed"`
	ElementCount int       `json:"elementCount"`
	PhotoCount   int       `json:"photoCount"`
}

type ConditionSummary struct {
	ByCondition    map[Condition]int `json:"byCondition"`
	AbsentElements int               `json:"absentElements"`
	TotalElements  int               `json:"totalElements"`
	CompletedRooms int               `json:"completedRooms"`
	TotalRooms     int               `json:"totalRooms"`
	Rooms          []RoomSummary     `json:"rooms"`
}

// Summarize counts elements per condition and room completion.
func (i *Inspection) Summarize() ConditionSummary {
	summary := ConditionSummary{
		ByCondition: make(map[Condition]int, len(conditionOrder)),
		TotalRooms:  len(i.Rooms),
		Rooms:       make([]RoomSummary, 0, len(i.Rooms)),
	}
	for _, c := range conditionOrder {
		summary.ByCondition[c] = 0
	}

	for _, room := range i.Rooms {
		if room.Completed {
			summary.CompletedRooms++
		}
		summary.Rooms = append(summary.Rooms, RoomSummary{
			RoomID:       room.ID,
			Name:         room.Name,
			Completed:    room.Completed,
			ElementCount: len(room.Elements),
			PhotoCount:   len(room.Photos),
		})
		for _, element := range room.Elements {
			summary.TotalElements++
			if element.Absent {
				summary.AbsentElements++
				continue
			}
			summary.ByCondition[element.Condition]++
		}
	}

	return summary
}
