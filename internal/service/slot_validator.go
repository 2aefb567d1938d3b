package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

// SlotValidator decides whether a candidate interval [start, end) is a legal
// appointment under a doctor's weekly schedule. Candidate instants arrive in
// UTC; schedule times are wall-clock strings interpreted in the configured
// zone, so every comparison is lifted onto the absolute time axis first.
type SlotValidator struct {
	loc *time.Location
}

// NewSlotValidator builds a validator anchored to the scheduling zone.
func NewSlotValidator(loc *time.Location) *SlotValidator {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotValidator{loc: loc}
}

// Validate checks the interval against working hours, breaks and
// unavailability windows. Boundary slots are legal: start == schedule start
// and end == schedule end pass, and a slot abutting a break does not overlap
// it.
func (v *SlotValidator) Validate(doctor *models.Doctor, start, end time.Time) error {
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return appErrors.ErrInvalidDuration
	}

	localStart := start.In(v.loc)
	weekday := localStart.Weekday()

	entry, ok := doctor.Schedule.EntryForWeekday(weekday)
	if !ok {
		return appErrors.Clone(appErrors.ErrNoScheduleForDay, fmt.Sprintf("doctor is not available on %s", weekday))
	}

	scheduleStart, err := v.onSameDay(localStart, entry.StartTime)
	if err != nil {
		return err
	}
	scheduleEnd, err := v.onSameDay(localStart, entry.EndTime)
	if err != nil {
		return err
	}

	if start.Before(scheduleStart) || end.After(scheduleEnd) {
		return appErrors.Clone(appErrors.ErrOutsideWorkingHours,
			fmt.Sprintf("slot is outside the doctor's %s hours (%s-%s)", weekday, entry.StartTime, entry.EndTime))
	}

	for _, br := range entry.Breaks {
		breakStart, err := v.onSameDay(localStart, br.BreakStart)
		if err != nil {
			return err
		}
		breakEnd, err := v.onSameDay(localStart, br.BreakEnd)
		if err != nil {
			return err
		}
		if intervalsOverlap(start, end, breakStart, breakEnd) {
			return appErrors.Clone(appErrors.ErrOverlapsBreak,
				fmt.Sprintf("slot overlaps a break from %s to %s", br.BreakStart, br.BreakEnd))
		}
	}

	if doctor.Unavailability.Blocks(start, end) {
		if window, ok := doctor.Unavailability.ActiveAt(start); ok {
			return appErrors.Clone(appErrors.ErrDoctorUnavailable,
				fmt.Sprintf("doctor is unavailable until %s", window.EndDate.Format(time.RFC3339)))
		}
		return appErrors.ErrDoctorUnavailable
	}

	return nil
}

// onSameDay anchors a wall-clock "HH:mm" on the civil date of the anchor in
// the scheduling zone, yielding an absolute instant.
func (v *SlotValidator) onSameDay(local time.Time, clock string) (time.Time, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed schedule time")
	}
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, v.loc), nil
}

// intervalsOverlap applies the three-way rule: the candidate starts during
// the window, ends during it, or fully covers it. Shared endpoints do not
// overlap.
func intervalsOverlap(start, end, windowStart, windowEnd time.Time) bool {
	startsDuring := start.Before(windowEnd) && !start.Before(windowStart)
	endsDuring := end.After(windowStart) && !end.After(windowEnd)
	covers := !start.After(windowStart) && !end.Before(windowEnd)
	return startsDuring || endsDuring || covers
}

func parseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:mm", clock)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hour, minute, nil
}
