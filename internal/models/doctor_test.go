package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

func TestUnavailabilityWindowsActiveAt(t *testing.T) {
	windows := UnavailabilityWindows{
		{Status: true, StartDate: day(1), EndDate: day(10)},
		{Status: false, StartDate: day(2), EndDate: day(12)},
		{Status: true, StartDate: day(3), EndDate: day(8)},
	}

	// overlapping active windows resolve to the most recently added one
	window, ok := windows.ActiveAt(day(5))
	require.True(t, ok)
	assert.Equal(t, day(8), window.EndDate)

	// only the first window covers this instant; the cleared one is skipped
	window, ok = windows.ActiveAt(day(9))
	require.True(t, ok)
	assert.Equal(t, day(10), window.EndDate)

	_, ok = windows.ActiveAt(day(11))
	assert.False(t, ok)

	// EndDate is exclusive
	_, ok = windows.ActiveAt(day(10))
	assert.False(t, ok)
}

func TestUnavailabilityWindowsBlocks(t *testing.T) {
	windows := UnavailabilityWindows{
		{Status: true, StartDate: day(5), EndDate: day(7)},
		{Status: false, StartDate: day(20), EndDate: day(25)},
	}

	assert.True(t, windows.Blocks(day(6), day(8)))
	assert.True(t, windows.Blocks(day(4), day(6)))
	// shared endpoints do not overlap
	assert.False(t, windows.Blocks(day(7), day(9)))
	assert.False(t, windows.Blocks(day(3), day(5)))
	// cleared windows never block
	assert.False(t, windows.Blocks(day(21), day(22)))
}

func TestWeeklyScheduleEntryForWeekday(t *testing.T) {
	schedule := WeeklySchedule{
		{Day: "Monday", StartTime: "09:00", EndTime: "17:00"},
		{Day: "monday", StartTime: "10:00", EndTime: "12:00"},
	}

	entry, ok := schedule.EntryForWeekday(time.Monday)
	require.True(t, ok)
	assert.Equal(t, "10:00", entry.StartTime)

	_, ok = schedule.EntryForWeekday(time.Sunday)
	assert.False(t, ok)
}
