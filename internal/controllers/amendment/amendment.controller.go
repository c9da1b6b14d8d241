package amendmentController

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
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AmendmentControllerInterface interface {
	List(ctx context.Context, user *User, inspectionID uuid.UUID) ([]*Amendment, error)
	Create(
		ctx context.Context,
		user *User,
		inspectionID uuid.UUID,
		request *types.CreateAmendmentRequest,
	) (*Amendment, error)
	Respond(
		ctx context.Context,
		user *User,
		inspectionID, amendmentID uuid.UUID,
		request *types.RespondAmendmentRequest,
	) (*Amendment, error)
}

type AmendmentController struct {
	inspectionRepo repositories.InspectionRepository
	amendmentRepo  repositories.AmendmentRepository
	transaction    services.Transactor
	events         events.Publisher
	now            func() time.Time
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus events.Publisher,
) *AmendmentController {
	return &AmendmentController{
		inspectionRepo: repos.Inspection,
		amendmentRepo:  repos.Amendment,
		transaction:    services.Transaction,
		events:         eventBus,
		now:            time.Now,
	}
}

// WithClock replaces the time source.
func (c *AmendmentController) WithClock(now func() time.Time) *AmendmentController {
	c.now = now
	return c
}

// List returns amendments in creation order to either party once the inspection is signed.
func (c *AmendmentController) List(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
) ([]*Amendment, error) {
	var amendments []*Amendment
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetByID(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if _, err := lifecycle.AuthorizeParty(inspection, user.ID); err != nil {
			return err
		}
		if !inspection.Status.IsFinalized() {
			return types.Errorf(types.ErrInvalidState, "amendments are available once both parties have signed")
		}
		amendments, err = c.amendmentRepo.ListByInspection(ctx, tx, inspectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amendments, nil
}

// Create files an occupant amendment while the window is open.
func (c *AmendmentController) Create(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	request *types.CreateAmendmentRequest,
) (*Amendment, error) {
	log := logger.NewWithContext(ctx, "amendmentController").Function("Create")
	now := c.now()

	var amendment *Amendment
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeRole(inspection, user.ID, RoleOccupant); err != nil {
			return err
		}

		candidate, err := lifecycle.NewAmendment(inspection, user.ID, utils.CleanText(request.Description), now)
		if err != nil {
			return err
		}
		if err := c.amendmentRepo.Create(ctx, tx, candidate); err != nil {
			return err
		}
		amendment = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.NewInspectionEvent(events.AMENDMENT_CREATED, inspectionID, user.ID, map[string]any{
		"amendmentId": amendment.ID,
	})
	if err := c.events.Publish(events.AMENDMENT_CHANNEL, event); err != nil {
		log.Warn("failed to announce amendment", "amendmentID", amendment.ID, "error", err)
	}

	return amendment, nil
}

// Respond records the owner's single answer. The window only gates creation,
// so pending amendments can be answered after it closes.
func (c *AmendmentController) Respond(
	ctx context.Context,
	user *User,
	inspectionID, amendmentID uuid.UUID,
	request *types.RespondAmendmentRequest,
) (*Amendment, error) {
	log := logger.NewWithContext(ctx, "amendmentController").Function("Respond")
	now := c.now()

	var amendment *Amendment
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeRole(inspection, user.ID, RoleOwner); err != nil {
			return err
		}

		existing, err := c.amendmentRepo.GetByID(ctx, tx, inspectionID, amendmentID)
		if err != nil {
			return err
		}
		note := utils.CleanTextPtr(request.ResponseNote)
		if err := lifecycle.RespondToAmendment(existing, request.Status, note, now); err != nil {
			return err
		}
		if err := c.amendmentRepo.Respond(ctx, tx, existing); err != nil {
			return err
		}

		if lifecycle.AnnotateAmended(inspection, existing.Status) {
			if err := c.inspectionRepo.UpdateFields(ctx, tx, inspection, "amended"); err != nil {
				return err
			}
		}
		amendment = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	repositories.ClearAfterCommit(ctx, c.inspectionRepo, inspectionID)

	event := events.NewInspectionEvent(events.AMENDMENT_RESPONDED, inspectionID, user.ID, map[string]any{
		"amendmentId": amendment.ID,
		"status":      amendment.Status,
	})
	if err := c.events.Publish(events.AMENDMENT_CHANNEL, event); err != nil {
		log.Warn("failed to announce amendment response", "amendmentID", amendment.ID, "error", err)
	}

	return amendment, nil
}
