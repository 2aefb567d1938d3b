package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

// AppointmentRepository persists appointments and runs the transactional
// booking path.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// conflictQuery finds any active appointment overlapping [$2, $3) for the
// doctor. The three-way OR mirrors the slot validation overlap rule:
// starts-during, ends-during, fully-covers.
const conflictQuery = `SELECT 1 FROM appointments
WHERE doctor_id = $1
  AND status IN ('pending', 'booked')
  AND (
        (start_time >= $2 AND start_time < $3)
     OR (end_time > $2 AND end_time <= $3)
     OR (start_time <= $2 AND end_time >= $3)
  )
LIMIT 1`

const insertAppointmentQuery = `INSERT INTO appointments
	(id, doctor_id, patient_id, start_time, end_time, fee, status, created_at, updated_at)
VALUES (:id, :doctor_id, :patient_id, :start_time, :end_time, :fee, :status, :created_at, :updated_at)`

// BookSlot runs the conflict check and the insert inside one serializable
// transaction so two concurrent bookings cannot both pass the check for
// overlapping intervals. A doctor+interval exclusion constraint on the table
// (EXCLUDE USING gist) backstops the same guarantee at the storage level.
func (r *AppointmentRepository) BookSlot(ctx context.Context, appointment *models.Appointment) error {
	now := time.Now().UTC()
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	if appointment.Status == "" {
		appointment.Status = models.AppointmentPending
	}
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "begin booking transaction")
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback() //nolint:errcheck
		}
	}()

	var one int
	err = tx.GetContext(ctx, &one, conflictQuery, appointment.DoctorID, appointment.StartTime, appointment.EndTime)
	if err == nil {
		return appErrors.ErrSlotAlreadyBooked
	}
	if err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "check slot conflict")
	}

	if _, err := tx.NamedExecContext(ctx, insertAppointmentQuery, appointment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "insert appointment")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, "commit booking transaction")
	}
	commit = true
	return nil
}

// HasConflict reports whether any active appointment overlaps [start, end)
// for the doctor. Outside the booking path this is only advisory; BookSlot
// re-runs the check inside its transaction.
func (r *AppointmentRepository) HasConflict(ctx context.Context, doctorID string, start, end time.Time) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, conflictQuery, doctorID, start, end)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check appointment conflict: %w", err)
	}
	return true, nil
}

// FindByID fetches an appointment by identifier.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	const query = `SELECT id, doctor_id, patient_id, start_time, end_time, fee, status, created_at, updated_at
FROM appointments WHERE id = $1`
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

const detailColumns = `a.id, a.doctor_id, a.patient_id, a.start_time, a.end_time, a.fee, a.status, a.created_at, a.updated_at,
       du.full_name AS doctor_name, d.user_id AS doctor_user_id,
       pu.full_name AS patient_name, p.user_id AS patient_user_id`

const detailJoins = `FROM appointments a
JOIN doctors d ON d.id = a.doctor_id
JOIN users du ON du.id = d.user_id
JOIN patients p ON p.id = a.patient_id
JOIN users pu ON pu.id = p.user_id`

// FindDetailByID fetches an appointment with participant names.
func (r *AppointmentRepository) FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1", detailColumns, detailJoins)
	var detail models.AppointmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns appointments for a doctor or patient, newest first.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentDetail, int, error) {
	where := "1=1"
	args := []interface{}{}
	if filter.DoctorID != "" {
		args = append(args, filter.DoctorID)
		where += fmt.Sprintf(" AND a.doctor_id = $%d", len(args))
	}
	if filter.PatientID != "" {
		args = append(args, filter.PatientID)
		where += fmt.Sprintf(" AND a.patient_id = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY a.start_time DESC LIMIT %d OFFSET %d",
		detailColumns, detailJoins, where, size, offset)

	var rows []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM appointments a WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	return rows, total, nil
}

// UpdateStatus persists a status transition and returns the updated row.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	const query = `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1
RETURNING id, doctor_id, patient_id, start_time, end_time, fee, status, created_at, updated_at`
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id, status, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// Delete removes an appointment row.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
