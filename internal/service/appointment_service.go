package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
	"github.com/carebook/carebook-api/pkg/export"
)

// exportPageSize caps how many rows a single CSV export pulls; it matches the
// repository's largest page.
const exportPageSize = 100

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type appointmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

type doctorByUserReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Doctor, error)
}

// AppointmentService covers the appointment lifecycle after booking: listing,
// status transitions and deletion. Status changes never re-validate the
// interval; authorization is the caller's concern, the state machine is ours.
type AppointmentService struct {
	appointments  appointmentStore
	doctors       doctorByUserReader
	patients      patientReader
	validator     *validator.Validate
	notifications notificationDispatcher
	csv           csvRenderer
	logger        *zap.Logger
}

// NewAppointmentService constructs an AppointmentService. A nil csv renderer
// falls back to the default CSV exporter.
func NewAppointmentService(appointments appointmentStore, doctors doctorByUserReader, patients patientReader, validate *validator.Validate, notifications notificationDispatcher, csv csvRenderer, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		appointments:  appointments,
		doctors:       doctors,
		patients:      patients,
		validator:     validate,
		notifications: notifications,
		csv:           csv,
		logger:        logger,
	}
}

// List returns appointments scoped to the caller: doctors and patients only
// see their own, admins see whatever the filter selects.
func (s *AppointmentService) List(ctx context.Context, claims *models.JWTClaims, filter models.AppointmentFilter) ([]models.AppointmentDetail, *models.Pagination, error) {
	switch claims.Role {
	case models.RoleDoctor:
		doctor, err := s.doctors.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "doctor profile not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
		}
		filter.DoctorID = doctor.ID
	case models.RolePatient:
		patient, err := s.patients.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "patient profile not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
		}
		filter.PatientID = patient.ID
	default:
		if filter.DoctorID == "" && filter.PatientID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidInput, "doctorId or patientId is required")
		}
	}

	rows, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExportCSV renders the caller's appointment list to CSV. Scoping follows
// List: doctors and patients export their own appointments, admins whatever
// the filter selects.
func (s *AppointmentService) ExportCSV(ctx context.Context, claims *models.JWTClaims, filter models.AppointmentFilter) ([]byte, string, error) {
	filter.Page = 1
	if filter.PageSize <= 0 || filter.PageSize > exportPageSize {
		filter.PageSize = exportPageSize
	}
	rows, _, err := s.List(ctx, claims, filter)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Headers: []string{"Appointment ID", "Doctor", "Patient", "Start Time", "End Time", "Duration (min)", "Fee (INR)", "Status"},
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Appointment ID": row.ID,
			"Doctor":         row.DoctorName,
			"Patient":        row.PatientName,
			"Start Time":     row.StartTime.UTC().Format(time.RFC3339),
			"End Time":       row.EndTime.UTC().Format(time.RFC3339),
			"Duration (min)": strconv.Itoa(int(row.EndTime.Sub(row.StartTime).Minutes())),
			"Fee (INR)":      strconv.FormatInt(row.Fee, 10),
			"Status":         string(row.Status),
		})
	}

	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render appointment export")
	}
	filename := fmt.Sprintf("appointments-%s.csv", time.Now().UTC().Format("2006-01-02"))
	return payload, filename, nil
}

// Get returns a single appointment the caller participates in.
func (s *AppointmentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.AppointmentDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.participant(claims, detail) {
		return nil, appErrors.ErrForbidden
	}
	return detail, nil
}

// UpdateStatus applies a lifecycle transition requested by a participant.
func (s *AppointmentService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, req dto.UpdateAppointmentStatusRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "appointmentId and status are required")
	}
	if !req.Status.Valid() || req.Status == models.AppointmentPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("invalid status %q", req.Status))
	}

	detail, err := s.loadDetail(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !s.participant(claims, detail) {
		return nil, appErrors.ErrForbidden
	}

	updated, err := s.transition(ctx, &detail.Appointment, req.Status)
	if err != nil {
		return nil, err
	}

	if s.notifications != nil && req.Status == models.AppointmentCancelled {
		s.notifications.Dispatch(detail.PatientUserID, "Your appointment has been cancelled", models.NotificationData{
			"appointment_id": updated.ID,
		})
	}
	return updated, nil
}

// MarkBooked confirms payment for an appointment. Called by the payment
// webhook; already-booked appointments are treated as a no-op so webhook
// retries stay idempotent.
func (s *AppointmentService) MarkBooked(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	appointment, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if appointment.Status == models.AppointmentBooked {
		return appointment, nil
	}
	return s.transition(ctx, appointment, models.AppointmentBooked)
}

// Delete removes an appointment. Allowed for its doctor or patient while the
// appointment is not completed.
func (s *AppointmentService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return err
	}
	if !s.participant(claims, detail) {
		return appErrors.Clone(appErrors.ErrForbidden, "not authorized to delete this appointment")
	}
	if detail.Status == models.AppointmentCompleted {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "completed appointments cannot be deleted")
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	return nil
}

func (s *AppointmentService) transition(ctx context.Context, appointment *models.Appointment, next models.AppointmentStatus) (*models.Appointment, error) {
	if !appointment.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot change status from %s to %s", appointment.Status, next))
	}
	updated, err := s.appointments.UpdateStatus(ctx, appointment.ID, next)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
	}
	s.logger.Info("appointment status changed",
		zap.String("appointment_id", appointment.ID),
		zap.String("from", string(appointment.Status)),
		zap.String("to", string(next)))
	return updated, nil
}

func (s *AppointmentService) loadDetail(ctx context.Context, id string) (*models.AppointmentDetail, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "appointmentId is required")
	}
	detail, err := s.appointments.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return detail, nil
}

func (s *AppointmentService) participant(claims *models.JWTClaims, detail *models.AppointmentDetail) bool {
	if claims == nil {
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	return claims.UserID == detail.DoctorUserID || claims.UserID == detail.PatientUserID
}
