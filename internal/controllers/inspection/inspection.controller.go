package inspectionController

import (
	"context"
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

type InspectionControllerInterface interface {
	Create(ctx context.Context, user *User, request *types.CreateInspectionRequest) (*types.InspectionView, error)
	Get(ctx context.Context, user *User, inspectionID uuid.UUID) (*types.InspectionView, error)
	UpdateHeader(
		ctx context.Context,
		user *User,
		inspectionID uuid.UUID,
		request *types.UpdateInspectionRequest,
	) (*types.InspectionView, error)
	Touch(ctx context.Context, user *User, inspectionID uuid.UUID, request *types.TouchRequest) error
	AddRoom(ctx context.Context, user *User, inspectionID uuid.UUID, request *types.CreateRoomRequest) (*Room, error)
	UpdateRoom(
		ctx context.Context,
		user *User,
		inspectionID, roomID uuid.UUID,
		request *types.UpdateRoomRequest,
	) (*Room, error)
	AddElement(
		ctx context.Context,
		user *User,
		inspectionID, roomID uuid.UUID,
		request *types.ElementRequest,
	) (*Element, error)
	ReplaceElement(
		ctx context.Context,
		user *User,
		inspectionID, elementID uuid.UUID,
		request *types.ElementRequest,
	) (*Element, error)
	AttachPhoto(
		ctx context.Context,
		user *User,
		inspectionID, roomID uuid.UUID,
		request *types.PhotoRequest,
	) (*Photo, error)
	UpsertMeter(
		ctx context.Context,
		user *User,
		inspectionID uuid.UUID,
		meterType MeterType,
		request *types.MeterRequest,
	) (*Meter, error)
	UpsertKey(
		ctx context.Context,
		user *User,
		inspectionID uuid.UUID,
		keyType string,
		request *types.KeyRequest,
	) (*Key, error)
}

type InspectionController struct {
	inspectionRepo  repositories.InspectionRepository
	conditionRepo   repositories.ConditionRecordRepository
	applicationRepo repositories.ApplicationRepository
	transaction     services.Transactor
	now             func() time.Time
}

func New(repos repositories.Repository, services services.Service) *InspectionController {
	return &InspectionController{
		inspectionRepo:  repos.Inspection,
		conditionRepo:   repos.ConditionRecord,
		applicationRepo: repos.Application,
		transaction:     services.Transaction,
		now:             time.Now,
	}
}

// WithClock replaces the time source.
func (c *InspectionController) WithClock(now func() time.Time) *InspectionController {
	c.now = now
	return c
}

// View renders an inspection for the given role.
func View(inspection *Inspection, role SignerRole) *types.InspectionView {
	view := &types.InspectionView{
		Inspection: *inspection,
		Role:       role,
		Summary:    inspection.Summarize(),
	}
	if deadline, ok := lifecycle.AmendmentDeadline(inspection); ok {
		view.AmendmentDeadline = &deadline
	}
	return view
}

func validation(err error) error {
	return types.Errorf(types.ErrValidation, "%s", err.Error())
}

func (c *InspectionController) Create(
	ctx context.Context,
	user *User,
	request *types.CreateInspectionRequest,
) (*types.InspectionView, error) {
	log := logger.NewWithContext(ctx, "inspectionController").Function("Create")

	if request.ApplicationID == uuid.Nil {
		return nil, types.Errorf(types.ErrValidation, "applicationId is required")
	}
	if !request.Kind.IsValid() {
		return nil, types.Errorf(types.ErrValidation, "kind must be ENTRY or EXIT")
	}

	var created *Inspection
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		application, err := c.applicationRepo.GetByID(ctx, tx, request.ApplicationID)
		if err != nil {
			return err
		}
		if application.OwnerID != user.ID {
			return types.Errorf(types.ErrForbidden, "only the owner of the application can start an inspection")
		}
		if !application.IsAccepted() {
			return types.Errorf(types.ErrInvalidState, "inspections can only be started for an accepted application")
		}

		if request.Kind == KindExit {
			if _, err := c.inspectionRepo.GetByApplicationAndKind(ctx, tx, application.ID, KindEntry); err != nil {
				if types.KindOf(err) == types.ErrNotFound {
					return types.Errorf(types.ErrInvalidState, "an exit inspection requires the entry inspection")
				}
				return err
			}
		}

		inspection := &Inspection{
			ApplicationID:   application.ID,
			Kind:            request.Kind,
			Status:          StatusDraft,
			OwnerID:         application.OwnerID,
			OccupantID:      application.TenantID,
			OccupantPresent: true,
			Rooms:           []Room{},
			Meters:          []Meter{},
			Keys:            []Key{},
		}
		if err := c.inspectionRepo.Create(ctx, tx, inspection); err != nil {
			return err
		}
		created = inspection
		return nil
	})
	if err != nil {
		if id, ok := types.DuplicateInspectionID(err); ok {
			log.Info("Inspection already exists", "applicationID", request.ApplicationID, "inspectionID", id)
		}
		return nil, err
	}

	log.Info("Inspection created", "inspectionID", created.ID, "kind", created.Kind)
	return View(created, RoleOwner), nil
}

func (c *InspectionController) Get(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
) (*types.InspectionView, error) {
	var inspection *Inspection
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		inspection, err = c.inspectionRepo.GetByID(ctx, tx, inspectionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	role, err := lifecycle.AuthorizeParty(inspection, user.ID)
	if err != nil {
		return nil, err
	}
	return View(inspection, role), nil
}

// mutate loads the inspection under lock, checks that the owner is editing a
// pre-finalization record, then runs fn in the same transaction.
func (c *InspectionController) mutate(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	fn func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error,
) error {
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if err := lifecycle.AuthorizeRole(inspection, user.ID, RoleOwner); err != nil {
			return err
		}
		if err := lifecycle.EnsureEditable(inspection); err != nil {
			return err
		}
		return fn(ctx, tx, inspection)
	})
	if err != nil {
		return err
	}

	repositories.ClearAfterCommit(ctx, c.inspectionRepo, inspectionID)
	return nil
}

func (c *InspectionController) UpdateHeader(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	request *types.UpdateInspectionRequest,
) (*types.InspectionView, error) {
	var updated *Inspection
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		fields := []string{}

		if request.GeneralObservations != nil {
			text := utils.CleanText(*request.GeneralObservations)
			if len(text) > MaxObservationsLength {
				return types.Errorf(types.ErrValidation, "general observations exceed %d characters", MaxObservationsLength)
			}
			inspection.GeneralObservations = text
			fields = append(fields, "general_observations")
		}
		if request.OccupantPresent != nil {
			inspection.OccupantPresent = *request.OccupantPresent
			fields = append(fields, "occupant_present")
		}
		if request.RepresentativeName != nil {
			inspection.RepresentativeName = utils.CleanTextPtr(request.RepresentativeName)
			fields = append(fields, "representative_name")
		}
		if request.RepresentativeMandate != nil {
			inspection.RepresentativeMandate = utils.CleanTextPtr(request.RepresentativeMandate)
			fields = append(fields, "representative_mandate")
		}

		if inspection.OccupantPresent {
			if request.RepresentativeName == nil && inspection.RepresentativeName != nil {
				inspection.RepresentativeName = nil
				fields = append(fields, "representative_name")
			}
			if request.RepresentativeMandate == nil && inspection.RepresentativeMandate != nil {
				inspection.RepresentativeMandate = nil
				fields = append(fields, "representative_mandate")
			}
		}

		if err := c.inspectionRepo.UpdateFields(ctx, tx, inspection, fields...); err != nil {
			return err
		}
		updated = inspection
		return nil
	})
	if err != nil {
		return nil, err
	}
	return View(updated, RoleOwner), nil
}

// Touch records editing activity. Either party may touch a draft; a
// finalized inspection rejects it.
func (c *InspectionController) Touch(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	request *types.TouchRequest,
) error {
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		inspection, err := c.inspectionRepo.GetForUpdate(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if _, err := lifecycle.AuthorizeParty(inspection, user.ID); err != nil {
			return err
		}
		if err := lifecycle.EnsureEditable(inspection); err != nil {
			return err
		}

		now := c.now().UTC()
		inspection.LastActivityAt = &now
		fields := []string{"last_activity_at"}
		if device := utils.CleanText(request.DeviceFingerprint); device != "" {
			inspection.LastDevice = &device
			fields = append(fields, "last_device")
		}
		return c.inspectionRepo.UpdateFields(ctx, tx, inspection, fields...)
	})
	if err != nil {
		return err
	}

	repositories.ClearAfterCommit(ctx, c.inspectionRepo, inspectionID)
	return nil
}

func (c *InspectionController) AddRoom(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	request *types.CreateRoomRequest,
) (*Room, error) {
	var room *Room
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		candidate := request.Room(inspection.NextRoomPosition())
		candidate.InspectionID = inspection.ID
		if err := candidate.Validate(); err != nil {
			return validation(err)
		}
		if err := c.conditionRepo.CreateRoom(ctx, tx, &candidate); err != nil {
			return err
		}
		room = &candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *InspectionController) UpdateRoom(
	ctx context.Context,
	user *User,
	inspectionID, roomID uuid.UUID,
	request *types.UpdateRoomRequest,
) (*Room, error) {
	var room *Room
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		existing := inspection.FindRoom(roomID)
		if existing == nil {
			return types.Errorf(types.ErrNotFound, "room not found")
		}

		fields := []string{}
		if request.Name != nil {
			existing.Name = utils.CleanText(*request.Name)
			fields = append(fields, "name")
		}
		if request.Observations != nil {
			existing.Observations = utils.CleanText(*request.Observations)
			fields = append(fields, "observations")
		}
		if request.Completed != nil {
			existing.Completed = *request.Completed
			fields = append(fields, "completed")
		}
		if request.Position != nil {
			existing.Position = *request.Position
			fields = append(fields, "position")
		}
		if err := existing.Validate(); err != nil {
			return validation(err)
		}

		if err := c.conditionRepo.UpdateRoom(ctx, tx, existing, fields...); err != nil {
			return err
		}
		room = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *InspectionController) AddElement(
	ctx context.Context,
	user *User,
	inspectionID, roomID uuid.UUID,
	request *types.ElementRequest,
) (*Element, error) {
	var element *Element
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		room := inspection.FindRoom(roomID)
		if room == nil {
			return types.Errorf(types.ErrNotFound, "room not found")
		}

		candidate := request.Element()
		candidate.RoomID = room.ID
		candidate.InspectionID = inspection.ID
		if err := candidate.Validate(); err != nil {
			return validation(err)
		}
		if err := c.conditionRepo.CreateElement(ctx, tx, candidate); err != nil {
			return err
		}
		element = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return element, nil
}

// ReplaceElement overwrites the element. Degradation tags are dropped when
// the new condition no longer carries them.
func (c *InspectionController) ReplaceElement(
	ctx context.Context,
	user *User,
	inspectionID, elementID uuid.UUID,
	request *types.ElementRequest,
) (*Element, error) {
	var element *Element
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		room, existing := inspection.FindElement(elementID)
		if existing == nil {
			return types.Errorf(types.ErrNotFound, "element not found")
		}

		candidate := request.Element()
		candidate.BaseUUIDModel = existing.BaseUUIDModel
		candidate.RoomID = room.ID
		candidate.InspectionID = inspection.ID
		if err := candidate.Validate(); err != nil {
			return validation(err)
		}
		if err := c.conditionRepo.ReplaceElement(ctx, tx, candidate); err != nil {
			return err
		}
		element = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return element, nil
}

func (c *InspectionController) AttachPhoto(
	ctx context.Context,
	user *User,
	inspectionID, roomID uuid.UUID,
	request *types.PhotoRequest,
) (*Photo, error) {
	var photo *Photo
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		room := inspection.FindRoom(roomID)
		if room == nil {
			return types.Errorf(types.ErrNotFound, "room not found")
		}
		if request.ElementID != nil {
			owner, element := inspection.FindElement(*request.ElementID)
			if element == nil || owner.ID != room.ID {
				return types.Errorf(types.ErrNotFound, "element not found in this room")
			}
		}

		candidate := request.Photo()
		candidate.RoomID = room.ID
		candidate.InspectionID = inspection.ID
		if err := candidate.Validate(); err != nil {
			return validation(err)
		}
		if err := c.conditionRepo.CreatePhoto(ctx, tx, candidate); err != nil {
			return err
		}
		photo = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func (c *InspectionController) UpsertMeter(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	meterType MeterType,
	request *types.MeterRequest,
) (*Meter, error) {
	var meter *Meter
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		candidate := request.Meter(meterType)
		candidate.InspectionID = inspection.ID
		if err := candidate.Validate(); err != nil {
			return validation(err)
		}
		if err := c.conditionRepo.UpsertMeter(ctx, tx, candidate); err != nil {
			return err
		}
		meter = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meter, nil
}

func (c *InspectionController) UpsertKey(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	keyType string,
	request *types.KeyRequest,
) (*Key, error) {
	var key *Key
	err := c.mutate(ctx, user, inspectionID, func(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
		candidate := &Key{
			InspectionID: inspection.ID,
			Type:         keyType,
			Quantity:     request.Quantity,
		}
		if err := candidate.Validate(); err != nil {
			return validation(err)
		}
		if err := c.conditionRepo.UpsertKey(ctx, tx, candidate); err != nil {
			return err
		}
		key = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}
