package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Break is a pause inside a working day. Times are wall-clock "HH:mm" strings
// in the configured scheduling zone.
type Break struct {
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
}

// ScheduleEntry describes the working hours for one weekday.
type ScheduleEntry struct {
	Day       string  `json:"day"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Breaks    []Break `json:"breaks,omitempty"`
}

// WeeklySchedule is a doctor's recurring weekly availability, stored as JSONB.
type WeeklySchedule []ScheduleEntry

// EntryForWeekday returns the entry matching the weekday, case-insensitively.
// When duplicate entries exist for the same day the last one wins.
func (s WeeklySchedule) EntryForWeekday(day time.Weekday) (*ScheduleEntry, bool) {
	name := day.String()
	var found *ScheduleEntry
	for i := range s {
		if strings.EqualFold(s[i].Day, name) {
			found = &s[i]
		}
	}
	return found, found != nil
}

// Value implements driver.Valuer.
func (s WeeklySchedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *WeeklySchedule) Scan(src interface{}) error {
	return scanJSON(src, s, "weekly schedule")
}

// UnavailabilityWindow is an absolute-time interval [StartDate, EndDate)
// during which the doctor accepts no bookings. Windows are append-only.
type UnavailabilityWindow struct {
	Status    bool      `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Covers reports whether the instant falls inside the window.
func (w UnavailabilityWindow) Covers(t time.Time) bool {
	return !t.Before(w.StartDate) && t.Before(w.EndDate)
}

// UnavailabilityWindows is the append-ordered window list, stored as JSONB.
type UnavailabilityWindows []UnavailabilityWindow

// ActiveAt returns the window covering the instant. When windows overlap the
// most recently added one is returned.
func (l UnavailabilityWindows) ActiveAt(t time.Time) (*UnavailabilityWindow, bool) {
	var found *UnavailabilityWindow
	for i := range l {
		if l[i].Status && l[i].Covers(t) {
			found = &l[i]
		}
	}
	return found, found != nil
}

// Blocks reports whether any window overlaps the half-open interval
// [start, end). Any matching window blocks, regardless of insertion order.
func (l UnavailabilityWindows) Blocks(start, end time.Time) bool {
	for i := range l {
		if l[i].Status && l[i].StartDate.Before(end) && start.Before(l[i].EndDate) {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (l UnavailabilityWindows) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *UnavailabilityWindows) Scan(src interface{}) error {
	return scanJSON(src, l, "unavailability windows")
}

// Doctor owns its weekly schedule and unavailability windows; both are
// embedded documents rather than separately referenced rows.
type Doctor struct {
	ID                 string                `db:"id" json:"id"`
	UserID             string                `db:"user_id" json:"user_id"`
	HospitalID         string                `db:"hospital_id" json:"hospital_id"`
	Specialization     string                `db:"specialization" json:"specialization"`
	ExperienceYears    int                   `db:"experience_years" json:"experience_years"`
	HourlyRate         float64               `db:"hourly_rate" json:"hourly_rate"`
	RegistrationNumber string                `db:"registration_number" json:"registration_number"`
	Verified           bool                  `db:"verified" json:"verified"`
	Schedule           WeeklySchedule        `db:"schedule" json:"schedule"`
	Unavailability     UnavailabilityWindows `db:"unavailability" json:"unavailability"`
	CreatedAt          time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time             `db:"updated_at" json:"updated_at"`
}

func scanJSON(src, dest interface{}, what string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported %s source type %T", what, src)
	}
}
