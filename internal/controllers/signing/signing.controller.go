package signingController

import (
	"context"
	"rentflow/internal/events"
	"rentflow/internal/lifecycle"
	. "rentflow/internal/models"
	"rentflow/internal/repositories"
	"rentflow/internal/services"
	"rentflow/internal/types"
	"rentflow/internal/utils"
	"rentflow/pkg/logger"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caller identifies who is signing: an authenticated user, or the bearer of a
// signing link token. Exactly one is set.
type Caller struct {
	User      *User
	LinkToken string
	UserAgent string
	IPAddress string
}

type SigningControllerInterface interface {
	Sign(ctx context.Context, caller Caller, inspectionID uuid.UUID, request *types.SignRequest) (*types.SignResponse, error)
	SigningLink(ctx context.Context, user *User, inspectionID uuid.UUID) (*types.SigningLink, error)
	SendSigningLink(ctx context.Context, user *User, inspectionID uuid.UUID) (*types.SigningLink, error)
	GenerateArtifact(ctx context.Context, user *User, inspectionID uuid.UUID) (*types.ArtifactResponse, error)
}

type SigningController struct {
	inspectionRepo repositories.InspectionRepository
	transaction    services.Transactor
	links          *services.SigningLinkService
	exports        services.ArtifactGenerator
	events         events.Publisher
	now            func() time.Time
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus events.Publisher,
) *SigningController {
	return &SigningController{
		inspectionRepo: repos.Inspection,
		transaction:    services.Transaction,
		links:          services.SigningLink,
		exports:        services.Export,
		events:         eventBus,
		now:            time.Now,
	}
}

// WithClock replaces the time source.
func (c *SigningController) WithClock(now func() time.Time) *SigningController {
	c.now = now
	return c
}

// WithExporter replaces the artifact generator.
func (c *SigningController) WithExporter(exports services.ArtifactGenerator) *SigningController {
	c.exports = exports
	return c
}

func signatureColumns(role SignerRole) []string {
	if role == RoleOwner {
		return []string{"owner_signature", "owner_signed_at", "status"}
	}
	return []string{
		"occupant_signature",
		"occupant_signed_at",
		"occupant_reserves",
		"status",
		"signing_link_id",
	}
}

// Sign records a signature. A link token can only sign as the occupant and
// is checked against the stored link inside the same transaction that
// records the signature.
func (c *SigningController) Sign(
	ctx context.Context,
	caller Caller,
	inspectionID uuid.UUID,
	request *types.SignRequest,
) (*types.SignResponse, error) {
	log := logger.NewWithContext(ctx, "signingController").Function("Sign")
	now := c.now()

	var grant *services.LinkGrant
	if caller.LinkToken != "" {
		parsed, err := c.links.Parse(caller.LinkToken, now)
		if err != nil {
			return nil, err
		}
		if parsed.InspectionID != inspectionID {
			return nil, types.Errorf(types.ErrInvalidOrExpiredLink, types.InvalidLinkMessage)
		}
		if request.Role != "" && request.Role != RoleOccupant {
			return nil, types.Errorf(types.ErrForbidden, "a signing link can only be used by the occupant")
		}
		grant = &parsed
	} else if caller.User == nil {
		return nil, types.Errorf(types.ErrForbidden, "sign in or use the signing link you received")
	}

	signature := Signature{
		SVG:               strings.TrimSpace(request.Signature.SVG),
		DeviceFingerprint: utils.CleanText(request.Signature.DeviceFingerprint),
		UserAgent:         caller.UserAgent,
		Geolocation:       request.Signature.Geolocation,
	}
	if ip := strings.TrimSpace(caller.IPAddress); ip != "" {
		signature.IPAddress = &ip
	}

	var signed *Inspection
	var role SignerRole
	var actor uuid.UUID
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			if grant != nil && types.KindOf(err) == types.ErrNotFound {
				return types.Errorf(types.ErrInvalidOrExpiredLink, types.InvalidLinkMessage)
			}
			return err
		}

		if grant != nil {
			if err := c.links.Authorize(inspection, *grant, now); err != nil {
				return err
			}
			role = RoleOccupant
			actor = inspection.OccupantID
		} else {
			role = request.Role
			if role == "" {
				role = inspection.PartyRole(caller.User.ID)
			}
			if err := lifecycle.AuthorizeRole(inspection, caller.User.ID, role); err != nil {
				return err
			}
			actor = caller.User.ID
		}

		if err := lifecycle.RecordSignature(inspection, role, signature, request.Reserves, now); err != nil {
			return err
		}
		if err := c.inspectionRepo.UpdateFields(ctx, tx, inspection, signatureColumns(role)...); err != nil {
			return err
		}
		signed = inspection
		return nil
	})
	if err != nil {
		return nil, err
	}
	repositories.ClearAfterCommit(ctx, c.inspectionRepo, signed.ID)

	signedAt := *signed.OwnerSignedAt
	if role == RoleOccupant {
		signedAt = *signed.OccupantSignedAt
	}
	log.Info("Signature recorded", "inspectionID", signed.ID, "role", role, "viaLink", grant != nil)

	event := events.NewInspectionEvent(events.INSPECTION_SIGNED, signed.ID, actor, map[string]any{
		"role":   role,
		"status": signed.Status,
	})
	if err := c.events.Publish(events.INSPECTION_CHANNEL, event); err != nil {
		log.Warn("failed to announce signature", "inspectionID", signed.ID, "error", err)
	}

	if signed.Status == StatusSigned {
		if _, err := c.exports.Generate(ctx, signed.ID); err != nil {
			log.Warn("automatic export failed, it will be retried", "inspectionID", signed.ID, "error", err)
		}
	}

	return &types.SignResponse{
		InspectionID: signed.ID,
		Status:       signed.Status,
		SignedAt:     signedAt,
	}, nil
}

// ensureLink hands out the active link or issues a new one.
func (c *SigningController) ensureLink(
	ctx context.Context,
	tx *gorm.DB,
	user *User,
	inspectionID uuid.UUID,
	now time.Time,
) (*Inspection, error) {
	inspection, err := c.inspectionRepo.GetForUpdate(ctx, tx, inspectionID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeRole(inspection, user.ID, RoleOwner); err != nil {
		return nil, err
	}
	if err := lifecycle.CanIssueSigningLink(inspection); err != nil {
		return nil, err
	}
	if lifecycle.ActiveSigningLink(inspection, now) {
		return inspection, nil
	}

	if _, err := lifecycle.IssueSigningLink(inspection, now); err != nil {
		return nil, err
	}
	if err := c.inspectionRepo.UpdateFields(
		ctx, tx, inspection,
		"signing_link_id", "signing_link_issued_at", "signing_link_expires_at",
	); err != nil {
		return nil, err
	}
	return inspection, nil
}

// SigningLink returns the shareable link without notifying anyone.
func (c *SigningController) SigningLink(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
) (*types.SigningLink, error) {
	now := c.now()

	var inspection *Inspection
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		inspection, err = c.ensureLink(ctx, tx, user, inspectionID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	repositories.ClearAfterCommit(ctx, c.inspectionRepo, inspectionID)

	link, err := c.links.Link(inspection)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// SendSigningLink notifies the occupant once per inspection. Later calls
// return the link without a second notification.
func (c *SigningController) SendSigningLink(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
) (*types.SigningLink, error) {
	log := logger.NewWithContext(ctx, "signingController").Function("SendSigningLink")
	now := c.now()

	var inspection *Inspection
	var notify bool
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		inspection, err = c.ensureLink(ctx, tx, user, inspectionID, now)
		if err != nil {
			return err
		}
		notify = lifecycle.MarkLinkSent(inspection, now)
		if !notify {
			return nil
		}
		return c.inspectionRepo.UpdateFields(ctx, tx, inspection, "signing_link_sent_at")
	})
	if err != nil {
		return nil, err
	}
	repositories.ClearAfterCommit(ctx, c.inspectionRepo, inspectionID)

	link, err := c.links.Link(inspection)
	if err != nil {
		return nil, err
	}

	if notify {
		event := events.NewInspectionEvent(events.LINK_SHARED, inspection.ID, user.ID, map[string]any{
			"occupantId": inspection.OccupantID,
			"url":        link.URL,
			"expiresAt":  link.ExpiresAt,
		})
		if err := c.events.Publish(events.INSPECTION_CHANNEL, event); err != nil {
			log.Warn("failed to hand off signing link notification", "inspectionID", inspection.ID, "error", err)
		}
	}

	return &link, nil
}

// GenerateArtifact triggers document generation for a signed inspection.
// Either party may trigger it.
func (c *SigningController) GenerateArtifact(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
) (*types.ArtifactResponse, error) {
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetByID(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if _, err := lifecycle.AuthorizeParty(inspection, user.ID); err != nil {
			return err
		}
		return lifecycle.CanExport(inspection)
	})
	if err != nil {
		return nil, err
	}

	exported, err := c.exports.Generate(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	response := &types.ArtifactResponse{
		InspectionID: exported.ID,
		Status:       exported.Status,
	}
	if exported.ArtifactURL != nil {
		response.ArtifactURL = *exported.ArtifactURL
	}
	if exported.ArtifactGeneratedAt != nil {
		response.GeneratedAt = *exported.ArtifactGeneratedAt
	}
	return response, nil
}
