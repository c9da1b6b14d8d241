package repositories

import (
	"context"
	"errors"
	. "rentflow/internal/models"
	"rentflow/internal/types"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func answered(status AmendmentStatus) *Amendment {
	note := "will schedule repair"
	respondedAt := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	amendment := &Amendment{
		InspectionID: uuid.New(),
		Status:       status,
		ResponseNote: &note,
		RespondedAt:  &respondedAt,
	}
	amendment.EnsureID()
	return amendment
}

func TestAmendmentRepository_Respond(t *testing.T) {
	tests := []struct {
		name     string
		rows     int64
		expected types.ErrorKind
	}{
		{name: "pending row updated", rows: 1},
		{name: "already answered", rows: 0, expected: types.ErrAmendmentAlreadyResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock := setupTestDB(t)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "amendments" SET`).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))
			mock.ExpectCommit()

			err := NewAmendmentRepository().Respond(context.Background(), gormDB, answered(AmendmentAccepted))
			if tt.expected != "" {
				assert.ErrorIs(t, err, tt.expected)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAmendmentRepository_RespondDatabaseError(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "amendments" SET`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := NewAmendmentRepository().Respond(context.Background(), gormDB, answered(AmendmentRejected))
	require.Error(t, err)
	assert.Equal(t, types.ErrorKind(""), types.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAmendmentRepository_GetByIDNotFound(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectQuery(`SELECT \* FROM "amendments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewAmendmentRepository().GetByID(context.Background(), gormDB, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
