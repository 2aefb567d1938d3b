package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type bookingAppointmentStore interface {
	BookSlot(ctx context.Context, appointment *models.Appointment) error
}

type doctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type patientReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Patient, error)
}

type notificationDispatcher interface {
	Dispatch(userID, message string, data models.NotificationData)
}

// BookingService runs the booking pipeline: resolve participants, validate
// the slot, price it, and commit through the transactional repository. All
// validation happens before any write; any failure leaves no state behind.
type BookingService struct {
	appointments  bookingAppointmentStore
	doctors       doctorReader
	patients      patientReader
	slots         *SlotValidator
	validator     *validator.Validate
	notifications notificationDispatcher
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(appointments bookingAppointmentStore, doctors doctorReader, patients patientReader, slots *SlotValidator, validate *validator.Validate, notifications notificationDispatcher, metrics *MetricsService, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		appointments:  appointments,
		doctors:       doctors,
		patients:      patients,
		slots:         slots,
		validator:     validate,
		notifications: notifications,
		metrics:       metrics,
		logger:        logger,
	}
}

// Book reserves [start, end) with the doctor for the authenticated patient.
// On success exactly one pending appointment exists with the computed fee; on
// any failure nothing is persisted.
func (s *BookingService) Book(ctx context.Context, patientUserID, doctorID string, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	started := time.Now()
	appointment, err := s.book(ctx, patientUserID, doctorID, req)
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = appErrors.FromError(err).Code
		}
		s.metrics.ObserveBooking(outcome, time.Since(started))
	}
	return appointment, err
}

func (s *BookingService) book(ctx context.Context, patientUserID, doctorID string, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	if doctorID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "doctorId is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "startTime and endTime are required")
	}

	start := req.StartTime.UTC()
	end := req.EndTime.UTC()
	if !end.After(start) {
		return nil, appErrors.ErrInvalidDuration
	}

	patient, err := s.patients.FindByUserID(ctx, patientUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}

	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}

	if err := s.slots.Validate(doctor, start, end); err != nil {
		return nil, err
	}

	fee, err := CalculateFee(doctor.HourlyRate, start, end)
	if err != nil {
		return nil, err
	}

	appointment := &models.Appointment{
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		StartTime: start,
		EndTime:   end,
		Fee:       fee,
		Status:    models.AppointmentPending,
	}

	// Conflict check and insert run inside one serializable transaction in
	// the repository; a concurrent overlapping booking surfaces here as
	// ErrSlotAlreadyBooked.
	if err := s.appointments.BookSlot(ctx, appointment); err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appointment.ID),
		zap.String("doctor_id", doctor.ID),
		zap.String("patient_id", patient.ID),
		zap.Time("start_time", start),
		zap.Time("end_time", end),
		zap.Int64("fee", fee))

	if s.notifications != nil {
		s.notifications.Dispatch(doctor.UserID, "You have a new appointment request", models.NotificationData{
			"appointment_id": appointment.ID,
			"start_time":     start.Format(time.RFC3339),
			"end_time":       end.Format(time.RFC3339),
		})
	}

	return appointment, nil
}
