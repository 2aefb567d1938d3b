package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

// mondayAt returns an instant on Monday 2026-09-07 at the given wall clock
// in the scheduling zone.
func mondayAt(loc *time.Location, hour, minute int) time.Time {
	return time.Date(2026, time.September, 7, hour, minute, 0, 0, loc)
}

func mondayDoctor() *models.Doctor {
	return &models.Doctor{
		ID:         "doc-1",
		HourlyRate: 600,
		Schedule: models.WeeklySchedule{
			{
				Day:       "Monday",
				StartTime: "09:00",
				EndTime:   "17:00",
				Breaks:    []models.Break{{BreakStart: "13:00", BreakEnd: "14:00"}},
			},
		},
	}
}

func TestSlotValidatorAcceptsWorkingHoursBoundaries(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()

	// start exactly at opening
	assert.NoError(t, v.Validate(doctor, mondayAt(loc, 9, 0), mondayAt(loc, 10, 0)))
	// end exactly at closing
	assert.NoError(t, v.Validate(doctor, mondayAt(loc, 16, 0), mondayAt(loc, 17, 0)))
}

func TestSlotValidatorRejectsOutsideWorkingHours(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()

	err := v.Validate(doctor, mondayAt(loc, 8, 30), mondayAt(loc, 9, 30))
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))

	err = v.Validate(doctor, mondayAt(loc, 16, 30), mondayAt(loc, 17, 30))
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))
}

func TestSlotValidatorBreakOverlap(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()

	tests := []struct {
		name       string
		start, end time.Time
		overlaps   bool
	}{
		{"ends during break", mondayAt(loc, 12, 30), mondayAt(loc, 13, 30), true},
		{"starts during break", mondayAt(loc, 13, 30), mondayAt(loc, 14, 30), true},
		{"covers break", mondayAt(loc, 12, 0), mondayAt(loc, 15, 0), true},
		{"inside break", mondayAt(loc, 13, 15), mondayAt(loc, 13, 45), true},
		{"ends exactly at break start", mondayAt(loc, 12, 0), mondayAt(loc, 13, 0), false},
		{"starts exactly at break end", mondayAt(loc, 14, 0), mondayAt(loc, 15, 0), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(doctor, tc.start, tc.end)
			if tc.overlaps {
				assert.True(t, appErrors.Is(err, appErrors.ErrOverlapsBreak), "expected break overlap, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlotValidatorNoScheduleForDay(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()

	// Sunday 2026-09-06
	start := time.Date(2026, time.September, 6, 10, 0, 0, 0, loc)
	err := v.Validate(doctor, start, start.Add(time.Hour))
	assert.True(t, appErrors.Is(err, appErrors.ErrNoScheduleForDay))
}

func TestSlotValidatorInvalidDuration(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()

	at := mondayAt(loc, 10, 0)
	assert.True(t, appErrors.Is(v.Validate(doctor, at, at), appErrors.ErrInvalidDuration))
	assert.True(t, appErrors.Is(v.Validate(doctor, at, at.Add(-time.Hour)), appErrors.ErrInvalidDuration))
}

func TestSlotValidatorUnavailability(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()
	doctor.Unavailability = models.UnavailabilityWindows{
		{
			Status:    true,
			StartDate: mondayAt(loc, 0, 0).UTC(),
			EndDate:   mondayAt(loc, 0, 0).Add(24 * time.Hour).UTC(),
		},
	}

	err := v.Validate(doctor, mondayAt(loc, 10, 0), mondayAt(loc, 11, 0))
	assert.True(t, appErrors.Is(err, appErrors.ErrDoctorUnavailable))
	assert.Contains(t, appErrors.FromError(err).Message,
		"unavailable until "+doctor.Unavailability[0].EndDate.Format(time.RFC3339))

	// next Monday is clear
	nextWeek := mondayAt(loc, 10, 0).Add(7 * 24 * time.Hour)
	assert.NoError(t, v.Validate(doctor, nextWeek, nextWeek.Add(time.Hour)))
}

func TestSlotValidatorClearedUnavailabilityDoesNotBlock(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()
	doctor.Unavailability = models.UnavailabilityWindows{
		{
			Status:    false,
			StartDate: mondayAt(loc, 0, 0).UTC(),
			EndDate:   mondayAt(loc, 0, 0).Add(24 * time.Hour).UTC(),
		},
	}

	assert.NoError(t, v.Validate(doctor, mondayAt(loc, 10, 0), mondayAt(loc, 11, 0)))
}

func TestSlotValidatorDuplicateDayLastEntryWins(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()
	doctor.Schedule = append(doctor.Schedule, models.ScheduleEntry{
		Day:       "monday",
		StartTime: "10:00",
		EndTime:   "12:00",
	})

	// legal under the first entry but not the second
	err := v.Validate(doctor, mondayAt(loc, 15, 0), mondayAt(loc, 16, 0))
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))

	assert.NoError(t, v.Validate(doctor, mondayAt(loc, 10, 0), mondayAt(loc, 11, 0)))
}

func TestSlotValidatorHonorsSchedulingZone(t *testing.T) {
	loc := kolkata(t)
	v := NewSlotValidator(loc)
	doctor := mondayDoctor()

	// 03:30 UTC on Monday is 09:00 in Asia/Kolkata
	start := time.Date(2026, time.September, 7, 3, 30, 0, 0, time.UTC)
	assert.NoError(t, v.Validate(doctor, start, start.Add(time.Hour)))

	// 03:00 UTC is 08:30 local, before opening
	early := time.Date(2026, time.September, 7, 3, 0, 0, 0, time.UTC)
	err := v.Validate(doctor, early, early.Add(time.Hour))
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))
}
