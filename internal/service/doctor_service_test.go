package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type mockDoctorStore struct {
	doctor        *models.Doctor
	replaced      []models.WeeklySchedule
	appended      []models.UnavailabilityWindow
	replaceCalled bool
}

func (m *mockDoctorStore) FindByID(_ context.Context, _ string) (*models.Doctor, error) {
	return m.doctor, nil
}

func (m *mockDoctorStore) FindByUserID(_ context.Context, _ string) (*models.Doctor, error) {
	return m.doctor, nil
}

func (m *mockDoctorStore) ReplaceSchedule(_ context.Context, _ string, schedule models.WeeklySchedule) error {
	m.replaceCalled = true
	m.replaced = append(m.replaced, schedule)
	return nil
}

func (m *mockDoctorStore) AppendUnavailability(_ context.Context, _ string, window models.UnavailabilityWindow) error {
	m.appended = append(m.appended, window)
	return nil
}

type mockConflictChecker struct {
	conflict bool
	calls    int
}

func (m *mockConflictChecker) HasConflict(_ context.Context, _ string, _, _ time.Time) (bool, error) {
	m.calls++
	return m.conflict, nil
}

func newDoctorFixture() (*DoctorService, *mockDoctorStore, *mockConflictChecker) {
	store := &mockDoctorStore{doctor: &models.Doctor{ID: "doc-1", UserID: "doc-user-1"}}
	checker := &mockConflictChecker{}
	svc := NewDoctorService(store, checker, nil, nil)
	return svc, store, checker
}

func validSchedule() []models.ScheduleEntry {
	return []models.ScheduleEntry{
		{
			Day:       "Monday",
			StartTime: "09:00",
			EndTime:   "17:00",
			Breaks:    []models.Break{{BreakStart: "13:00", BreakEnd: "14:00"}},
		},
		{Day: "Wednesday", StartTime: "10:00", EndTime: "16:00"},
	}
}

func TestDoctorServiceReplaceSchedule(t *testing.T) {
	svc, store, _ := newDoctorFixture()

	doctor, err := svc.ReplaceSchedule(context.Background(), "doc-user-1", dto.ReplaceScheduleRequest{Schedule: validSchedule()})
	require.NoError(t, err)
	assert.True(t, store.replaceCalled)
	assert.Len(t, doctor.Schedule, 2)
}

func TestDoctorServiceScheduleValidation(t *testing.T) {
	svc, store, _ := newDoctorFixture()

	tests := []struct {
		name  string
		entry models.ScheduleEntry
	}{
		{"unknown weekday", models.ScheduleEntry{Day: "Funday", StartTime: "09:00", EndTime: "17:00"}},
		{"malformed time", models.ScheduleEntry{Day: "Monday", StartTime: "9am", EndTime: "17:00"}},
		{"start after end", models.ScheduleEntry{Day: "Monday", StartTime: "17:00", EndTime: "09:00"}},
		{"break outside hours", models.ScheduleEntry{
			Day: "Monday", StartTime: "09:00", EndTime: "17:00",
			Breaks: []models.Break{{BreakStart: "08:00", BreakEnd: "09:30"}},
		}},
		{"inverted break", models.ScheduleEntry{
			Day: "Monday", StartTime: "09:00", EndTime: "17:00",
			Breaks: []models.Break{{BreakStart: "14:00", BreakEnd: "13:00"}},
		}},
		{"overlapping breaks", models.ScheduleEntry{
			Day: "Monday", StartTime: "09:00", EndTime: "17:00",
			Breaks: []models.Break{
				{BreakStart: "12:00", BreakEnd: "13:00"},
				{BreakStart: "12:30", BreakEnd: "14:00"},
			},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ReplaceSchedule(context.Background(), "doc-user-1", dto.ReplaceScheduleRequest{
				Schedule: []models.ScheduleEntry{tc.entry},
			})
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "expected validation error, got %v", err)
		})
	}
	assert.False(t, store.replaceCalled)
}

func TestDoctorServiceAbuttingBreaksAllowed(t *testing.T) {
	svc, _, _ := newDoctorFixture()

	_, err := svc.ReplaceSchedule(context.Background(), "doc-user-1", dto.ReplaceScheduleRequest{
		Schedule: []models.ScheduleEntry{{
			Day: "Monday", StartTime: "09:00", EndTime: "17:00",
			Breaks: []models.Break{
				{BreakStart: "12:00", BreakEnd: "13:00"},
				{BreakStart: "13:00", BreakEnd: "13:30"},
			},
		}},
	})
	assert.NoError(t, err)
}

func TestDoctorServiceUpdateScheduleEntry(t *testing.T) {
	svc, store, _ := newDoctorFixture()
	store.doctor.Schedule = validSchedule()

	doctor, err := svc.UpdateScheduleEntry(context.Background(), "doc-user-1", 1, dto.UpdateScheduleEntryRequest{
		Entry: models.ScheduleEntry{Day: "Friday", StartTime: "08:00", EndTime: "12:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Friday", doctor.Schedule[1].Day)

	_, err = svc.UpdateScheduleEntry(context.Background(), "doc-user-1", 5, dto.UpdateScheduleEntryRequest{
		Entry: models.ScheduleEntry{Day: "Friday", StartTime: "08:00", EndTime: "12:00"},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidInput))
}

func TestDoctorServiceAddUnavailability(t *testing.T) {
	svc, store, checker := newDoctorFixture()
	start := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)

	doctor, err := svc.AddUnavailability(context.Background(), "doc-user-1", dto.AddUnavailabilityRequest{
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, checker.calls)
	require.Len(t, store.appended, 1)
	assert.True(t, store.appended[0].Status)
	assert.Equal(t, start, store.appended[0].StartDate)
	assert.Len(t, doctor.Unavailability, 1)
}

func TestDoctorServiceAddUnavailabilityBlockedByAppointments(t *testing.T) {
	svc, store, checker := newDoctorFixture()
	checker.conflict = true
	start := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.AddUnavailability(context.Background(), "doc-user-1", dto.AddUnavailabilityRequest{
		StartDate: start,
		EndDate:   start.Add(24 * time.Hour),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, store.appended)
}

func TestDoctorServiceAddUnavailabilityInvertedWindow(t *testing.T) {
	svc, _, _ := newDoctorFixture()
	start := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.AddUnavailability(context.Background(), "doc-user-1", dto.AddUnavailabilityRequest{
		StartDate: start,
		EndDate:   start,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidInput))
}
