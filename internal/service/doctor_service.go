package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type doctorStore interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Doctor, error)
	ReplaceSchedule(ctx context.Context, doctorID string, schedule models.WeeklySchedule) error
	AppendUnavailability(ctx context.Context, doctorID string, window models.UnavailabilityWindow) error
}

type conflictChecker interface {
	HasConflict(ctx context.Context, doctorID string, start, end time.Time) (bool, error)
}

// DoctorService manages a doctor's schedule and unavailability. Schedule
// invariants (well-formed times, breaks inside the working window and
// pairwise non-overlapping) are enforced here, at write time, so slot
// validation can assume well-formed entries.
type DoctorService struct {
	doctors      doctorStore
	appointments conflictChecker
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewDoctorService constructs a DoctorService.
func NewDoctorService(doctors doctorStore, appointments conflictChecker, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{doctors: doctors, appointments: appointments, validator: validate, logger: logger}
}

// Get returns a doctor by identifier.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "doctorId is required")
	}
	doctor, err := s.doctors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// ReplaceSchedule swaps the caller's entire weekly schedule.
func (s *DoctorService) ReplaceSchedule(ctx context.Context, userID string, req dto.ReplaceScheduleRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := validateSchedule(req.Schedule); err != nil {
		return nil, err
	}

	doctor, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.doctors.ReplaceSchedule(ctx, doctor.ID, req.Schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	doctor.Schedule = req.Schedule
	s.logger.Info("doctor schedule replaced", zap.String("doctor_id", doctor.ID), zap.Int("entries", len(req.Schedule)))
	return doctor, nil
}

// UpdateScheduleEntry replaces a single entry by its position in the list.
func (s *DoctorService) UpdateScheduleEntry(ctx context.Context, userID string, index int, req dto.UpdateScheduleEntryRequest) (*models.Doctor, error) {
	doctor, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(doctor.Schedule) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "invalid schedule index")
	}

	updated := make(models.WeeklySchedule, len(doctor.Schedule))
	copy(updated, doctor.Schedule)
	updated[index] = req.Entry
	if err := validateSchedule(updated); err != nil {
		return nil, err
	}

	if err := s.doctors.ReplaceSchedule(ctx, doctor.ID, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	doctor.Schedule = updated
	return doctor, nil
}

// AddUnavailability appends a window during which no bookings are accepted.
// Rejected while booked or pending appointments exist inside the window; the
// doctor has to cancel those first.
func (s *DoctorService) AddUnavailability(ctx context.Context, userID string, req dto.AddUnavailabilityRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "startDate and endDate are required")
	}
	start := req.StartDate.UTC()
	end := req.EndDate.UTC()
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "endDate must be after startDate")
	}

	doctor, err := s.ownProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	conflict, err := s.appointments.HasConflict(ctx, doctor.ID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing appointments")
	}
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			"booked or pending appointments exist during this period; cancel them before marking yourself unavailable")
	}

	window := models.UnavailabilityWindow{Status: true, StartDate: start, EndDate: end}
	if err := s.doctors.AppendUnavailability(ctx, doctor.ID, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add unavailability window")
	}
	doctor.Unavailability = append(doctor.Unavailability, window)
	s.logger.Info("doctor unavailability added",
		zap.String("doctor_id", doctor.ID),
		zap.Time("start_date", start),
		zap.Time("end_date", end))
	return doctor, nil
}

func (s *DoctorService) ownProfile(ctx context.Context, userID string) (*models.Doctor, error) {
	doctor, err := s.doctors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

var weekdayNames = map[string]struct{}{
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

func validateSchedule(schedule models.WeeklySchedule) error {
	for i, entry := range schedule {
		if _, ok := weekdayNames[strings.ToLower(entry.Day)]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d: unknown weekday %q", i, entry.Day))
		}
		startH, startM, err := parseClock(entry.StartTime)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d: %v", i, err))
		}
		endH, endM, err := parseClock(entry.EndTime)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d: %v", i, err))
		}
		dayStart := startH*60 + startM
		dayEnd := endH*60 + endM
		if dayStart >= dayEnd {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d: start time must precede end time", i))
		}

		type span struct{ start, end int }
		spans := make([]span, 0, len(entry.Breaks))
		for j, br := range entry.Breaks {
			bsH, bsM, err := parseClock(br.BreakStart)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d break %d: %v", i, j, err))
			}
			beH, beM, err := parseClock(br.BreakEnd)
			if err != nil {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d break %d: %v", i, j, err))
			}
			bs := bsH*60 + bsM
			be := beH*60 + beM
			if bs >= be {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d break %d: break start must precede break end", i, j))
			}
			if bs < dayStart || be > dayEnd {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d break %d: break must fall inside working hours", i, j))
			}
			for _, prev := range spans {
				if bs < prev.end && prev.start < be {
					return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry %d break %d: breaks must not overlap", i, j))
				}
			}
			spans = append(spans, span{start: bs, end: be})
		}
	}
	return nil
}
