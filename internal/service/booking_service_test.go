package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type mockAppointmentStore struct {
	booked  []*models.Appointment
	bookErr error
}

func (m *mockAppointmentStore) BookSlot(_ context.Context, appointment *models.Appointment) error {
	if m.bookErr != nil {
		return m.bookErr
	}
	appointment.ID = "apt-1"
	m.booked = append(m.booked, appointment)
	return nil
}

type mockDoctorReader struct {
	doctor *models.Doctor
	err    error
}

func (m *mockDoctorReader) FindByID(_ context.Context, _ string) (*models.Doctor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doctor, nil
}

type mockPatientReader struct {
	patient *models.Patient
	err     error
}

func (m *mockPatientReader) FindByUserID(_ context.Context, _ string) (*models.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.patient, nil
}

type mockDispatcher struct {
	userIDs  []string
	messages []string
	data     []models.NotificationData
}

func (m *mockDispatcher) Dispatch(userID, message string, data models.NotificationData) {
	m.userIDs = append(m.userIDs, userID)
	m.messages = append(m.messages, message)
	m.data = append(m.data, data)
}

func newBookingFixture(t *testing.T) (*BookingService, *mockAppointmentStore, *mockDispatcher) {
	t.Helper()
	store := &mockAppointmentStore{}
	dispatcher := &mockDispatcher{}
	doctor := mondayDoctor()
	doctor.UserID = "doc-user-1"
	doctors := &mockDoctorReader{doctor: doctor}
	patients := &mockPatientReader{patient: &models.Patient{ID: "pat-1", UserID: "user-1"}}
	svc := NewBookingService(store, doctors, patients, NewSlotValidator(kolkata(t)), nil, dispatcher, nil, nil)
	return svc, store, dispatcher
}

func TestBookingServiceBooksValidSlot(t *testing.T) {
	svc, store, dispatcher := newBookingFixture(t)
	loc := kolkata(t)

	appointment, err := svc.Book(context.Background(), "user-1", "doc-1", dto.BookAppointmentRequest{
		StartTime: mondayAt(loc, 10, 0),
		EndTime:   mondayAt(loc, 11, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, "apt-1", appointment.ID)
	assert.Equal(t, "doc-1", appointment.DoctorID)
	assert.Equal(t, "pat-1", appointment.PatientID)
	assert.Equal(t, models.AppointmentPending, appointment.Status)
	assert.Equal(t, int64(600), appointment.Fee)
	assert.Equal(t, time.UTC, appointment.StartTime.Location())

	require.Len(t, store.booked, 1)
	// the booking notification goes to the doctor's user account
	require.Len(t, dispatcher.userIDs, 1)
	assert.Equal(t, "doc-user-1", dispatcher.userIDs[0])
	assert.Equal(t, "apt-1", dispatcher.data[0]["appointment_id"])
}

func TestBookingServiceSlotConflict(t *testing.T) {
	svc, store, dispatcher := newBookingFixture(t)
	store.bookErr = appErrors.ErrSlotAlreadyBooked
	loc := kolkata(t)

	_, err := svc.Book(context.Background(), "user-1", "doc-1", dto.BookAppointmentRequest{
		StartTime: mondayAt(loc, 10, 0),
		EndTime:   mondayAt(loc, 11, 0),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotAlreadyBooked))
	assert.Empty(t, dispatcher.userIDs)
}

func TestBookingServiceRejectsInvalidSlotBeforeWrite(t *testing.T) {
	svc, store, _ := newBookingFixture(t)
	loc := kolkata(t)

	_, err := svc.Book(context.Background(), "user-1", "doc-1", dto.BookAppointmentRequest{
		StartTime: mondayAt(loc, 13, 15),
		EndTime:   mondayAt(loc, 13, 45),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrOverlapsBreak))
	assert.Empty(t, store.booked)
}

func TestBookingServiceMissingDoctorID(t *testing.T) {
	svc, _, _ := newBookingFixture(t)
	loc := kolkata(t)

	_, err := svc.Book(context.Background(), "user-1", "", dto.BookAppointmentRequest{
		StartTime: mondayAt(loc, 10, 0),
		EndTime:   mondayAt(loc, 11, 0),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidInput))
}

func TestBookingServiceUnknownPatient(t *testing.T) {
	store := &mockAppointmentStore{}
	doctors := &mockDoctorReader{doctor: mondayDoctor()}
	patients := &mockPatientReader{err: sql.ErrNoRows}
	svc := NewBookingService(store, doctors, patients, NewSlotValidator(time.UTC), nil, &mockDispatcher{}, nil, nil)

	_, err := svc.Book(context.Background(), "ghost", "doc-1", dto.BookAppointmentRequest{
		StartTime: time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.September, 7, 11, 0, 0, 0, time.UTC),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestBookingServiceUnknownDoctor(t *testing.T) {
	store := &mockAppointmentStore{}
	doctors := &mockDoctorReader{err: sql.ErrNoRows}
	patients := &mockPatientReader{patient: &models.Patient{ID: "pat-1", UserID: "user-1"}}
	svc := NewBookingService(store, doctors, patients, NewSlotValidator(time.UTC), nil, &mockDispatcher{}, nil, nil)

	_, err := svc.Book(context.Background(), "user-1", "doc-404", dto.BookAppointmentRequest{
		StartTime: time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.September, 7, 11, 0, 0, 0, time.UTC),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
