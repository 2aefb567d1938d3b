package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

// activeConflictPattern pins the conflict scan to active statuses: cancelled
// and completed rows must never block a new booking.
const activeConflictPattern = `SELECT 1 FROM appointments WHERE doctor_id = \$1 AND status IN \('pending', 'booked'\)`

func newMockRepo(t *testing.T) (*AppointmentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAppointmentRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func pendingAppointment() *models.Appointment {
	start := time.Date(2026, time.September, 7, 3, 30, 0, 0, time.UTC)
	return &models.Appointment{
		DoctorID:  "doc-1",
		PatientID: "pat-1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Fee:       600,
	}
}

func TestBookSlotInsertsWhenFree(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := pendingAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery(activeConflictPattern).
		WithArgs("doc-1", appointment.StartTime, appointment.EndTime).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BookSlot(context.Background(), appointment)
	require.NoError(t, err)
	assert.NotEmpty(t, appointment.ID)
	assert.Equal(t, models.AppointmentPending, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotRejectsOverlap(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := pendingAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery(activeConflictPattern).
		WithArgs("doc-1", appointment.StartTime, appointment.EndTime).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.BookSlot(context.Background(), appointment)
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotAlreadyBooked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := pendingAppointment()

	mock.ExpectBegin()
	mock.ExpectQuery(activeConflictPattern).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.BookSlot(context.Background(), appointment)
	require.Error(t, err)
	assert.False(t, appErrors.Is(err, appErrors.ErrSlotAlreadyBooked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotCancelledAppointmentDoesNotBlock(t *testing.T) {
	repo, mock := newMockRepo(t)
	appointment := pendingAppointment()

	// A cancelled appointment over the same interval is invisible to the
	// status-filtered conflict scan, so the insert proceeds.
	mock.ExpectBegin()
	mock.ExpectQuery(activeConflictPattern).
		WithArgs("doc-1", appointment.StartTime, appointment.EndTime).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BookSlot(context.Background(), appointment)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2026, time.September, 7, 3, 30, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(activeConflictPattern).
		WithArgs("doc-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	conflict, err := repo.HasConflict(context.Background(), "doc-1", start, end)
	require.NoError(t, err)
	assert.True(t, conflict)

	mock.ExpectQuery(activeConflictPattern).
		WithArgs("doc-1", start, end).
		WillReturnError(sql.ErrNoRows)
	conflict, err = repo.HasConflict(context.Background(), "doc-1", start, end)
	require.NoError(t, err)
	assert.False(t, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingAppointment(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM appointments").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
