package services

import (
	"context"
	"rentflow/internal/events"
	"rentflow/internal/models"
	"rentflow/internal/testutil"
	"rentflow/internal/types"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportFixture struct {
	store     *testutil.Store
	exporter  *testutil.Exporter
	locks     *testutil.Locker
	publisher *testutil.Publisher
	service   *ExportService
}

func newExportFixture() *exportFixture {
	store := testutil.NewStore()
	f := &exportFixture{
		store:     store,
		exporter:  &testutil.Exporter{},
		locks:     &testutil.Locker{},
		publisher: &testutil.Publisher{},
	}
	f.service = NewExportService(
		testutil.NewTransactor(store),
		store.Repository().Inspection,
		f.exporter,
		f.locks,
		f.publisher,
	)
	f.service.now = func() time.Time {
		return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *exportFixture) seed(status models.InspectionStatus, signedAt time.Time) *models.Inspection {
	inspection := &models.Inspection{
		ApplicationID: uuid.New(),
		Kind:          models.KindEntry,
		Status:        status,
		OwnerID:       uuid.New(),
		OccupantID:    uuid.New(),
	}
	inspection.EnsureID()
	if status.IsFinalized() {
		ownerAt := signedAt.Add(-time.Hour)
		inspection.OwnerSignedAt = &ownerAt
		inspection.OccupantSignedAt = &signedAt
	}
	f.store.SetInspection(inspection)
	return inspection
}

func TestExportService_Generate(t *testing.T) {
	f := newExportFixture()
	inspection := f.seed(models.StatusSigned, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	stored, err := f.service.Generate(context.Background(), inspection.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusLocked, stored.Status)
	require.NotNil(t, stored.ArtifactURL)
	assert.Equal(t, "memory://inspections/"+inspection.ID.String(), *stored.ArtifactURL)

	persisted := f.store.Inspection(inspection.ID)
	assert.Equal(t, models.StatusLocked, persisted.Status)
	assert.True(t, persisted.HasArtifact())
	assert.Equal(t, 1, f.publisher.Count(events.INSPECTION_EXPORTED))
	assert.Equal(t, 1, f.store.ClearsAfterCommit(inspection.ID), "the cached tree is dropped once the artifact is stored")
}

func TestExportService_GenerateRequiresSignatures(t *testing.T) {
	f := newExportFixture()
	inspection := f.seed(models.StatusPendingSignature, time.Time{})

	_, err := f.service.Generate(context.Background(), inspection.ID)
	assert.ErrorIs(t, err, types.ErrInvalidState)
	assert.Equal(t, 0, f.exporter.Calls(inspection.ID))
	assert.Equal(t, 0, f.publisher.Count(events.INSPECTION_EXPORTED))
}

func TestExportService_FailureIsRetryable(t *testing.T) {
	f := newExportFixture()
	inspection := f.seed(models.StatusSigned, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	f.exporter.SetFail(true)
	_, err := f.service.Generate(context.Background(), inspection.ID)
	assert.ErrorIs(t, err, types.ErrExportFailed)

	persisted := f.store.Inspection(inspection.ID)
	assert.Equal(t, models.StatusSigned, persisted.Status)
	assert.Nil(t, persisted.ArtifactURL)
	assert.Equal(t, 0, f.publisher.Count(events.INSPECTION_EXPORTED))

	f.exporter.SetFail(false)
	stored, err := f.service.Generate(context.Background(), inspection.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, stored.Status)
	assert.Equal(t, 1, f.publisher.Count(events.INSPECTION_EXPORTED))
}

func TestExportService_RegenerateOverwritesReference(t *testing.T) {
	f := newExportFixture()
	inspection := f.seed(models.StatusSigned, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	first, err := f.service.Generate(context.Background(), inspection.ID)
	require.NoError(t, err)
	second, err := f.service.Generate(context.Background(), inspection.ID)
	require.NoError(t, err)

	assert.Equal(t, *first.ArtifactURL, *second.ArtifactURL)
	assert.Equal(t, 2, f.exporter.Calls(inspection.ID))
	assert.Equal(t, 2, f.publisher.Count(events.INSPECTION_EXPORTED))
}

func TestExportService_LockHeld(t *testing.T) {
	f := newExportFixture()
	inspection := f.seed(models.StatusSigned, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	acquired, err := f.locks.Acquire(context.Background(), inspection.ID)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.service.Generate(context.Background(), inspection.ID)
	assert.ErrorIs(t, err, types.ErrExportFailed)
	assert.Equal(t, 0, f.exporter.Calls(inspection.ID))
}

func TestExportService_ExportPending(t *testing.T) {
	f := newExportFixture()
	first := f.seed(models.StatusSigned, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	second := f.seed(models.StatusSigned, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
	draft := f.seed(models.StatusDraft, time.Time{})

	exported, err := f.service.ExportPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, exported)

	assert.Equal(t, models.StatusLocked, f.store.Inspection(first.ID).Status)
	assert.Equal(t, models.StatusLocked, f.store.Inspection(second.ID).Status)
	assert.Equal(t, models.StatusDraft, f.store.Inspection(draft.ID).Status)

	again, err := f.service.ExportPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestExportService_ExportPendingReportsFailures(t *testing.T) {
	f := newExportFixture()
	f.seed(models.StatusSigned, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	f.exporter.SetFail(true)

	exported, err := f.service.ExportPending(context.Background(), 10)
	assert.Equal(t, 0, exported)
	assert.ErrorIs(t, err, types.ErrExportFailed)
}
