package amendmentController

import (
	"context"
	"rentflow/internal/events"
	"rentflow/internal/lifecycle"
	. "rentflow/internal/models"
	"rentflow/internal/services"
	"rentflow/internal/testutil"
	"rentflow/internal/types"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var occupantSignedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store      *testutil.Store
	publisher  *testutil.Publisher
	controller *AmendmentController
	owner      *User
	occupant   *User
	inspection *Inspection
	now        time.Time
}

func newFixture(t *testing.T, status InspectionStatus) *fixture {
	t.Helper()

	store := testutil.NewStore()
	owner := store.AddUser("Olivia", "Owner")
	occupant := store.AddUser("Oscar", "Occupant")

	inspection := &Inspection{
		ApplicationID: uuid.New(),
		Kind:          KindEntry,
		Status:        status,
		OwnerID:       owner.ID,
		OccupantID:    occupant.ID,
	}
	inspection.EnsureID()
	if status.IsFinalized() {
		ownerAt := occupantSignedAt.Add(-time.Hour)
		signedAt := occupantSignedAt
		inspection.OwnerSignedAt = &ownerAt
		inspection.OccupantSignedAt = &signedAt
	}
	store.SetInspection(inspection)

	f := &fixture{
		store:      store,
		publisher:  &testutil.Publisher{},
		owner:      owner,
		occupant:   occupant,
		inspection: inspection,
		now:        occupantSignedAt.Add(72 * time.Hour),
	}
	f.controller = New(
		store.Repository(),
		services.Service{Transaction: testutil.NewTransactor(store)},
		f.publisher,
	).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) file(t *testing.T, description string) *Amendment {
	t.Helper()
	amendment, err := f.controller.Create(context.Background(), f.occupant, f.inspection.ID, &types.CreateAmendmentRequest{
		Description: description,
	})
	require.NoError(t, err)
	return amendment
}

func TestCreate_Window(t *testing.T) {
	tests := []struct {
		name     string
		after    time.Duration
		expected error
	}{
		{name: "right after signing", after: time.Minute},
		{name: "day 3", after: 72 * time.Hour},
		{name: "last instant", after: lifecycle.AmendmentWindow},
		{name: "one second late", after: lifecycle.AmendmentWindow + time.Second, expected: types.ErrAmendmentWindowClosed},
		{name: "day 11", after: 11 * 24 * time.Hour, expected: types.ErrAmendmentWindowClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, StatusLocked)
			f.now = occupantSignedAt.Add(tt.after)

			amendment, err := f.controller.Create(context.Background(), f.occupant, f.inspection.ID, &types.CreateAmendmentRequest{
				Description: "noise from radiator",
			})
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
				assert.Equal(t, 0, f.publisher.Count(events.AMENDMENT_CREATED))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, AmendmentPending, amendment.Status)
			assert.Equal(t, f.occupant.ID, amendment.RequestedByID)
			assert.Equal(t, 1, f.publisher.Count(events.AMENDMENT_CREATED))
		})
	}
}

func TestCreate_Rules(t *testing.T) {
	t.Run("before finalization", func(t *testing.T) {
		f := newFixture(t, StatusPendingSignature)
		_, err := f.controller.Create(context.Background(), f.occupant, f.inspection.ID, &types.CreateAmendmentRequest{
			Description: "noise from radiator",
		})
		assert.ErrorIs(t, err, types.ErrInvalidState)
	})

	t.Run("owner cannot file", func(t *testing.T) {
		f := newFixture(t, StatusSigned)
		_, err := f.controller.Create(context.Background(), f.owner, f.inspection.ID, &types.CreateAmendmentRequest{
			Description: "noise from radiator",
		})
		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("blank description", func(t *testing.T) {
		f := newFixture(t, StatusSigned)
		_, err := f.controller.Create(context.Background(), f.occupant, f.inspection.ID, &types.CreateAmendmentRequest{
			Description: "   ",
		})
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestRespond(t *testing.T) {
	f := newFixture(t, StatusLocked)
	amendment := f.file(t, "noise from radiator")
	ctx := context.Background()

	note := " will schedule repair "
	answered, err := f.controller.Respond(ctx, f.owner, f.inspection.ID, amendment.ID, &types.RespondAmendmentRequest{
		Status:       AmendmentAccepted,
		ResponseNote: &note,
	})
	require.NoError(t, err)
	assert.Equal(t, AmendmentAccepted, answered.Status)
	require.NotNil(t, answered.ResponseNote)
	assert.Equal(t, "will schedule repair", *answered.ResponseNote)
	require.NotNil(t, answered.RespondedAt)
	assert.True(t, answered.RespondedAt.Equal(f.now))

	assert.True(t, f.store.Inspection(f.inspection.ID).Amended)
	assert.Equal(t, 1, f.publisher.Count(events.AMENDMENT_RESPONDED))
	assert.Equal(t, 1, f.store.ClearsAfterCommit(f.inspection.ID))

	_, err = f.controller.Respond(ctx, f.owner, f.inspection.ID, amendment.ID, &types.RespondAmendmentRequest{
		Status: AmendmentRejected,
	})
	assert.ErrorIs(t, err, types.ErrAmendmentAlreadyResolved)
	assert.Equal(t, 1, f.store.ClearsAfterCommit(f.inspection.ID), "a rejected respond leaves the cache alone")

	listed, err := f.controller.List(ctx, f.occupant, f.inspection.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, AmendmentAccepted, listed[0].Status)
}

func TestRespond_RejectionLeavesInspectionUnflagged(t *testing.T) {
	f := newFixture(t, StatusLocked)
	amendment := f.file(t, "missing curtain rod")

	answered, err := f.controller.Respond(context.Background(), f.owner, f.inspection.ID, amendment.ID, &types.RespondAmendmentRequest{
		Status: AmendmentRejected,
	})
	require.NoError(t, err)
	assert.Equal(t, AmendmentRejected, answered.Status)
	assert.False(t, f.store.Inspection(f.inspection.ID).Amended)
}

func TestRespond_AfterWindowCloses(t *testing.T) {
	f := newFixture(t, StatusLocked)
	amendment := f.file(t, "noise from radiator")

	f.now = occupantSignedAt.Add(30 * 24 * time.Hour)
	answered, err := f.controller.Respond(context.Background(), f.owner, f.inspection.ID, amendment.ID, &types.RespondAmendmentRequest{
		Status: AmendmentAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, AmendmentAccepted, answered.Status)
}

func TestRespond_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		respond  func(f *fixture, amendment *Amendment) error
		expected types.ErrorKind
	}{
		{
			name: "occupant cannot answer",
			respond: func(f *fixture, amendment *Amendment) error {
				_, err := f.controller.Respond(context.Background(), f.occupant, f.inspection.ID, amendment.ID,
					&types.RespondAmendmentRequest{Status: AmendmentAccepted})
				return err
			},
			expected: types.ErrForbidden,
		},
		{
			name: "pending is not an answer",
			respond: func(f *fixture, amendment *Amendment) error {
				_, err := f.controller.Respond(context.Background(), f.owner, f.inspection.ID, amendment.ID,
					&types.RespondAmendmentRequest{Status: AmendmentPending})
				return err
			},
			expected: types.ErrValidation,
		},
		{
			name: "unknown amendment",
			respond: func(f *fixture, amendment *Amendment) error {
				_, err := f.controller.Respond(context.Background(), f.owner, f.inspection.ID, uuid.New(),
					&types.RespondAmendmentRequest{Status: AmendmentAccepted})
				return err
			},
			expected: types.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, StatusLocked)
			amendment := f.file(t, "noise from radiator")

			assert.ErrorIs(t, tt.respond(f, amendment), tt.expected)

			listed, err := f.controller.List(context.Background(), f.owner, f.inspection.ID)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			assert.Equal(t, AmendmentPending, listed[0].Status)
		})
	}
}

func TestList_Order(t *testing.T) {
	f := newFixture(t, StatusSigned)
	first := f.file(t, "noise from radiator")
	f.now = f.now.Add(time.Hour)
	second := f.file(t, "dripping tap")

	listed, err := f.controller.List(context.Background(), f.owner, f.inspection.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)

	stranger := f.store.AddUser("Sam", "Stranger")
	_, err = f.controller.List(context.Background(), stranger, f.inspection.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestList_BeforeSigning(t *testing.T) {
	for _, status := range []InspectionStatus{StatusDraft, StatusPendingSignature} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, status)

			_, err := f.controller.List(context.Background(), f.occupant, f.inspection.ID)
			assert.ErrorIs(t, err, types.ErrInvalidState)
		})
	}
}
