package types

import (
	"rentflow/internal/models"
	"rentflow/internal/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CreateInspectionRequest struct {
	ApplicationID uuid.UUID             `json:"applicationId"`
	Kind          models.InspectionKind `json:"kind"`
}

// UpdateInspectionRequest carries header fields; nil means unchanged.
type UpdateInspectionRequest struct {
	GeneralObservations   *string `json:"generalObservations,omitempty"`
	OccupantPresent       *bool   `json:"occupantPresent,omitempty"`
	RepresentativeName    *string `json:"representativeName,omitempty"`
	RepresentativeMandate *string `json:"representativeMandate,omitempty"`
}

type TouchRequest struct {
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
}

type CreateRoomRequest struct {
	Name         string          `json:"name"`
	RoomType     models.RoomType `json:"roomType"`
	Position     *int            `json:"position,omitempty"`
	Observations string          `json:"observations,omitempty"`
}

// Room builds an unsaved room; position applies when the request names none.
func (r *CreateRoomRequest) Room(position int) models.Room {
	if r.Position != nil {
		position = *r.Position
	}
	return models.Room{
		Name:         utils.CleanText(r.Name),
		RoomType:     r.RoomType,
		Position:     position,
		Observations: utils.CleanText(r.Observations),
		Elements:     []models.Element{},
		Photos:       []models.Photo{},
	}
}

type UpdateRoomRequest struct {
	Name         *string `json:"name,omitempty"`
	Observations *string `json:"observations,omitempty"`
	Completed    *bool   `json:"completed,omitempty"`
	Position     *int    `json:"position,omitempty"`
}

// ElementRequest is used for both creation and full replacement.
type ElementRequest struct {
	Category     models.ElementCategory  `json:"category"`
	Name         string                  `json:"name"`
	Natures      []models.NatureTag      `json:"natures"`
	Condition    models.Condition        `json:"condition"`
	Absent       bool                    `json:"absent"`
	Observations string                  `json:"observations,omitempty"`
	Degradations []models.DegradationTag `json:"degradations,omitempty"`
}

func (r *ElementRequest) Element() *models.Element {
	element := &models.Element{
		Category:     r.Category,
		Name:         utils.CleanText(r.Name),
		Natures:      datatypes.JSONSlice[models.NatureTag](r.Natures),
		Condition:    r.Condition,
		Absent:       r.Absent,
		Observations: utils.CleanText(r.Observations),
		Degradations: datatypes.JSONSlice[models.DegradationTag](r.Degradations),
	}
	element.Normalize()
	return element
}

type PhotoRequest struct {
	ElementID         *uuid.UUID       `json:"elementId,omitempty"`
	URL               string           `json:"url"`
	ThumbnailURL      *string          `json:"thumbnailUrl,omitempty"`
	ContentHash       string           `json:"contentHash"`
	Type              models.PhotoType `json:"type"`
	Geolocation       *models.GeoPoint `json:"geolocation,omitempty"`
	DeviceFingerprint *string          `json:"deviceFingerprint,omitempty"`
}

func (r *PhotoRequest) Photo() *models.Photo {
	return &models.Photo{
		ElementID:         r.ElementID,
		URL:               strings.TrimSpace(r.URL),
		ThumbnailURL:      utils.CleanTextPtr(r.ThumbnailURL),
		ContentHash:       r.ContentHash,
		Type:              r.Type,
		Geolocation:       r.Geolocation,
		DeviceFingerprint: utils.CleanTextPtr(r.DeviceFingerprint),
	}
}

type MeterRequest struct {
	SerialNumber string          `json:"serialNumber"`
	IndexReading decimal.Decimal `json:"indexReading"`
	PhotoURL     *string         `json:"photoUrl,omitempty"`
	NoGasService bool            `json:"noGasService"`
}

func (r *MeterRequest) Meter(meterType models.MeterType) *models.Meter {
	return &models.Meter{
		Type:         meterType,
		SerialNumber: utils.CleanText(r.SerialNumber),
		IndexReading: r.IndexReading,
		PhotoURL:     utils.CleanTextPtr(r.PhotoURL),
		NoGasService: r.NoGasService,
	}
}

type KeyRequest struct {
	Quantity int `json:"quantity"`
}

type SignatureInput struct {
	SVG               string           `json:"svg"`
	DeviceFingerprint string           `json:"deviceFingerprint,omitempty"`
	Geolocation       *models.GeoPoint `json:"geolocation,omitempty"`
}

type SignRequest struct {
	Role      models.SignerRole `json:"role"`
	Signature SignatureInput    `json:"signature"`
	Reserves  *string           `json:"reserves,omitempty"`
}

// SignResponse exposes only lifecycle state so a link holder learns nothing
// else about the inspection.
type SignResponse struct {
	InspectionID uuid.UUID               `json:"inspectionId"`
	Status       models.InspectionStatus `json:"status"`
	SignedAt     time.Time               `json:"signedAt"`
}

type SigningLink struct {
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expiresAt"`
	AlreadySent bool      `json:"alreadySent"`
}

type ArtifactResponse struct {
	InspectionID uuid.UUID               `json:"inspectionId"`
	Status       models.InspectionStatus `json:"status"`
	ArtifactURL  string                  `json:"artifactUrl"`
	GeneratedAt  time.Time               `json:"generatedAt"`
}

type CreateAmendmentRequest struct {
	Description string `json:"description"`
}

type RespondAmendmentRequest struct {
	Status       models.AmendmentStatus `json:"status"`
	ResponseNote *string                `json:"responseNote,omitempty"`
}

// InspectionView is the full tree returned to either party.
type InspectionView struct {
	models.Inspection
	Role              models.SignerRole       `json:"role"`
	Summary           models.ConditionSummary `json:"summary"`
	AmendmentDeadline *time.Time              `json:"amendmentDeadline,omitempty"`
}

type ErrorResponse struct {
	Error        string     `json:"error"`
	Code         ErrorKind  `json:"code,omitempty"`
	InspectionID *uuid.UUID `json:"inspectionId,omitempty"`
}
