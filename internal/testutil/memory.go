// Package testutil provides in-memory stand-ins for the persistence, event
// and export boundaries so workflows can be exercised without Postgres or
// valkey.
package testutil

import (
	"context"
	"rentflow/internal/models"
	"rentflow/internal/repositories"
	"rentflow/internal/types"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store holds every record in memory. A Transactor built on the same Store
// restores the previous state when a transaction fails.
type Store struct {
	mu           sync.Mutex
	inspections  map[uuid.UUID]*models.Inspection
	amendments   map[uuid.UUID]*models.Amendment
	applications map[uuid.UUID]*models.TenancyApplication
	users        map[uuid.UUID]*models.User

	inTransaction bool
	clears        map[uuid.UUID]int
}

func NewStore() *Store {
	return &Store{
		inspections:  make(map[uuid.UUID]*models.Inspection),
		amendments:   make(map[uuid.UUID]*models.Amendment),
		applications: make(map[uuid.UUID]*models.TenancyApplication),
		users:        make(map[uuid.UUID]*models.User),
		clears:       make(map[uuid.UUID]int),
	}
}

// ClearsAfterCommit counts cache clears for id made outside a transaction.
func (s *Store) ClearsAfterCommit(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears[id]
}

func (s *Store) setInTransaction(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTransaction = active
}

// Repository exposes the store through the repository interfaces.
func (s *Store) Repository() repositories.Repository {
	return repositories.Repository{
		User:            &userRepo{s},
		Application:     &applicationRepo{s},
		Inspection:      &inspectionRepo{s},
		ConditionRecord: &conditionRepo{s},
		Amendment:       &amendmentRepo{s},
	}
}

func (s *Store) AddUser(firstName, lastName string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &models.User{FirstName: firstName, LastName: lastName, IsActive: true}
	user.EnsureID()
	user.FullName = firstName + " " + lastName
	user.DisplayName = user.FullName
	s.users[user.ID] = user
	copied := *user
	return &copied
}

func (s *Store) AddApplication(
	reference string,
	owner, tenant uuid.UUID,
	status models.ApplicationStatus,
) *models.TenancyApplication {
	s.mu.Lock()
	defer s.mu.Unlock()

	application := &models.TenancyApplication{
		Reference: reference,
		OwnerID:   owner,
		TenantID:  tenant,
		Status:    status,
	}
	application.EnsureID()
	s.applications[application.ID] = application
	copied := *application
	return &copied
}

// Inspection returns a copy of the stored inspection, or nil.
func (s *Store) Inspection(id uuid.UUID) *models.Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.inspections[id]
	if !ok {
		return nil
	}
	return cloneInspection(stored)
}

// SetInspection overwrites a stored inspection, tree included.
func (s *Store) SetInspection(inspection *models.Inspection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspections[inspection.ID] = cloneInspection(inspection)
}

type snapshot struct {
	inspections map[uuid.UUID]*models.Inspection
	amendments  map[uuid.UUID]*models.Amendment
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		inspections: make(map[uuid.UUID]*models.Inspection, len(s.inspections)),
		amendments:  make(map[uuid.UUID]*models.Amendment, len(s.amendments)),
	}
	for id, inspection := range s.inspections {
		snap.inspections[id] = cloneInspection(inspection)
	}
	for id, amendment := range s.amendments {
		copied := *amendment
		snap.amendments[id] = &copied
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspections = snap.inspections
	s.amendments = snap.amendments
}

func cloneInspection(src *models.Inspection) *models.Inspection {
	dst := *src
	dst.Rooms = make([]models.Room, len(src.Rooms))
	for i, room := range src.Rooms {
		room.Elements = append([]models.Element(nil), room.Elements...)
		room.Photos = append([]models.Photo(nil), room.Photos...)
		dst.Rooms[i] = room
	}
	dst.Meters = append([]models.Meter(nil), src.Meters...)
	dst.Keys = append([]models.Key(nil), src.Keys...)
	return &dst
}

func stamp(base *models.BaseUUIDModel) {
	base.EnsureID()
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func notFound(entity string) error {
	return types.Errorf(types.ErrNotFound, "%s not found", entity)
}

// Transactor runs fn directly against the store with a nil *gorm.DB and
// rolls the store back when fn fails.
type Transactor struct {
	store *Store
	mu    sync.Mutex
	calls int
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

func (t *Transactor) Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()

	snap := t.store.snapshot()
	t.store.setInTransaction(true)
	err := fn(ctx, nil)
	t.store.setInTransaction(false)
	if err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

func (t *Transactor) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type inspectionRepo struct{ s *Store }

func (r *inspectionRepo) Create(ctx context.Context, tx *gorm.DB, inspection *models.Inspection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.inspections {
		if existing.ApplicationID == inspection.ApplicationID && existing.Kind == inspection.Kind {
			return &types.DuplicateInspectionError{InspectionID: existing.ID}
		}
	}
	stamp(&inspection.BaseUUIDModel)
	if inspection.Status == "" {
		inspection.Status = models.StatusDraft
	}
	r.s.inspections[inspection.ID] = cloneInspection(inspection)
	return nil
}

func (r *inspectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Inspection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.inspections[id]
	if !ok {
		return nil, notFound("inspection")
	}
	return cloneInspection(stored), nil
}

func (r *inspectionRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Inspection, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *inspectionRepo) GetByApplicationAndKind(
	ctx context.Context,
	tx *gorm.DB,
	applicationID uuid.UUID,
	kind models.InspectionKind,
) (*models.Inspection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, stored := range r.s.inspections {
		if stored.ApplicationID == applicationID && stored.Kind == kind {
			return cloneInspection(stored), nil
		}
	}
	return nil, notFound("inspection")
}

// UpdateFields replaces the header of the stored inspection and keeps its
// tree; the column list is not consulted.
func (r *inspectionRepo) UpdateFields(
	ctx context.Context,
	tx *gorm.DB,
	inspection *models.Inspection,
	fields ...string,
) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.inspections[inspection.ID]
	if !ok {
		return notFound("inspection")
	}
	if len(fields) == 0 {
		return nil
	}
	updated := cloneInspection(inspection)
	updated.Rooms, updated.Meters, updated.Keys = stored.Rooms, stored.Meters, stored.Keys
	updated.UpdatedAt = time.Now().UTC()
	r.s.inspections[inspection.ID] = updated
	return nil
}

func (r *inspectionRepo) ListPendingExport(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Inspection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pending := []*models.Inspection{}
	for _, stored := range r.s.inspections {
		if stored.Status == models.StatusSigned && stored.ArtifactURL == nil {
			pending = append(pending, cloneInspection(stored))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i].OccupantSignedAt, pending[j].OccupantSignedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *inspectionRepo) ClearCache(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.inTransaction {
		r.s.clears[id]++
	}
	return nil
}

type conditionRepo struct{ s *Store }

func (r *conditionRepo) inspection(id uuid.UUID) (*models.Inspection, error) {
	stored, ok := r.s.inspections[id]
	if !ok {
		return nil, notFound("inspection")
	}
	return stored, nil
}

func (r *conditionRepo) CreateRoom(ctx context.Context, tx *gorm.DB, room *models.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(room.InspectionID)
	if err != nil {
		return err
	}
	stamp(&room.BaseUUIDModel)
	copied := *room
	copied.Elements = nil
	copied.Photos = nil
	stored.Rooms = append(stored.Rooms, copied)
	sort.SliceStable(stored.Rooms, func(i, j int) bool {
		return stored.Rooms[i].Position < stored.Rooms[j].Position
	})
	return nil
}

func (r *conditionRepo) UpdateRoom(ctx context.Context, tx *gorm.DB, room *models.Room, fields ...string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(room.InspectionID)
	if err != nil {
		return err
	}
	target := stored.FindRoom(room.ID)
	if target == nil {
		return notFound("room")
	}
	target.Name = room.Name
	target.RoomType = room.RoomType
	target.Position = room.Position
	target.Observations = room.Observations
	target.Completed = room.Completed
	target.UpdatedAt = time.Now().UTC()
	sort.SliceStable(stored.Rooms, func(i, j int) bool {
		return stored.Rooms[i].Position < stored.Rooms[j].Position
	})
	return nil
}

func (r *conditionRepo) CreateElement(ctx context.Context, tx *gorm.DB, element *models.Element) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(element.InspectionID)
	if err != nil {
		return err
	}
	room := stored.FindRoom(element.RoomID)
	if room == nil {
		return notFound("room")
	}
	stamp(&element.BaseUUIDModel)
	room.Elements = append(room.Elements, *element)
	return nil
}

func (r *conditionRepo) ReplaceElement(ctx context.Context, tx *gorm.DB, element *models.Element) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(element.InspectionID)
	if err != nil {
		return err
	}
	_, target := stored.FindElement(element.ID)
	if target == nil {
		return notFound("element")
	}
	createdAt := target.CreatedAt
	*target = *element
	target.CreatedAt = createdAt
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *conditionRepo) CreatePhoto(ctx context.Context, tx *gorm.DB, photo *models.Photo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(photo.InspectionID)
	if err != nil {
		return err
	}
	room := stored.FindRoom(photo.RoomID)
	if room == nil {
		return notFound("room")
	}
	stamp(&photo.BaseUUIDModel)
	room.Photos = append(room.Photos, *photo)
	return nil
}

func (r *conditionRepo) UpsertMeter(ctx context.Context, tx *gorm.DB, meter *models.Meter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(meter.InspectionID)
	if err != nil {
		return err
	}
	for i := range stored.Meters {
		if stored.Meters[i].Type == meter.Type {
			meter.BaseUUIDModel = stored.Meters[i].BaseUUIDModel
			meter.UpdatedAt = time.Now().UTC()
			stored.Meters[i] = *meter
			return nil
		}
	}
	stamp(&meter.BaseUUIDModel)
	stored.Meters = append(stored.Meters, *meter)
	return nil
}

func (r *conditionRepo) UpsertKey(ctx context.Context, tx *gorm.DB, key *models.Key) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.inspection(key.InspectionID)
	if err != nil {
		return err
	}
	for i := range stored.Keys {
		if stored.Keys[i].Type == key.Type {
			key.BaseUUIDModel = stored.Keys[i].BaseUUIDModel
			key.UpdatedAt = time.Now().UTC()
			stored.Keys[i] = *key
			return nil
		}
	}
	stamp(&key.BaseUUIDModel)
	stored.Keys = append(stored.Keys, *key)
	return nil
}

type amendmentRepo struct{ s *Store }

func (r *amendmentRepo) Create(ctx context.Context, tx *gorm.DB, amendment *models.Amendment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stamp(&amendment.BaseUUIDModel)
	copied := *amendment
	r.s.amendments[amendment.ID] = &copied
	return nil
}

func (r *amendmentRepo) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	inspectionID, amendmentID uuid.UUID,
) (*models.Amendment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.amendments[amendmentID]
	if !ok || stored.InspectionID != inspectionID {
		return nil, notFound("amendment")
	}
	copied := *stored
	return &copied, nil
}

func (r *amendmentRepo) ListByInspection(
	ctx context.Context,
	tx *gorm.DB,
	inspectionID uuid.UUID,
) ([]*models.Amendment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	amendments := []*models.Amendment{}
	for _, stored := range r.s.amendments {
		if stored.InspectionID == inspectionID {
			copied := *stored
			amendments = append(amendments, &copied)
		}
	}
	sort.Slice(amendments, func(i, j int) bool {
		if amendments[i].CreatedAt.Equal(amendments[j].CreatedAt) {
			return amendments[i].ID.String() < amendments[j].ID.String()
		}
		return amendments[i].CreatedAt.Before(amendments[j].CreatedAt)
	})
	return amendments, nil
}

func (r *amendmentRepo) Respond(ctx context.Context, tx *gorm.DB, amendment *models.Amendment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.amendments[amendment.ID]
	if !ok || stored.Status != models.AmendmentPending {
		return types.Errorf(types.ErrAmendmentAlreadyResolved, "this amendment has already been answered")
	}
	stored.Status = amendment.Status
	stored.ResponseNote = amendment.ResponseNote
	stored.RespondedAt = amendment.RespondedAt
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

type applicationRepo struct{ s *Store }

func (r *applicationRepo) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*models.TenancyApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.applications[id]
	if !ok {
		return nil, notFound("tenancy application")
	}
	copied := *stored
	return &copied, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[id]
	if !ok {
		return nil, notFound("user")
	}
	copied := *stored
	return &copied, nil
}

func (r *userRepo) ClearUserCache(ctx context.Context, id uuid.UUID) error {
	return nil
}
