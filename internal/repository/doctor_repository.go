package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebook/carebook-api/internal/models"
)

// DoctorRepository persists doctors together with their embedded schedule and
// unavailability documents.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository constructs the repository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

const doctorColumns = `id, user_id, hospital_id, specialization, experience_years, hourly_rate,
       registration_number, verified, schedule, unavailability, created_at, updated_at`

// Create inserts a doctor profile.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	now := time.Now().UTC()
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = now
	}
	doctor.UpdatedAt = now
	const query = `INSERT INTO doctors
	(id, user_id, hospital_id, specialization, experience_years, hourly_rate, registration_number, verified, schedule, unavailability, created_at, updated_at)
VALUES (:id, :user_id, :hospital_id, :specialization, :experience_years, :hourly_rate, :registration_number, :verified, :schedule, :unavailability, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// FindByID fetches a doctor by identifier.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors WHERE id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByUserID fetches the doctor profile owned by a user account.
func (r *DoctorRepository) FindByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors WHERE user_id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, userID); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// ReplaceSchedule overwrites the weekly schedule document.
func (r *DoctorRepository) ReplaceSchedule(ctx context.Context, doctorID string, schedule models.WeeklySchedule) error {
	const query = `UPDATE doctors SET schedule = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, doctorID, schedule, time.Now().UTC()); err != nil {
		return fmt.Errorf("replace doctor schedule: %w", err)
	}
	return nil
}

// AppendUnavailability adds a window to the end of the unavailability list.
func (r *DoctorRepository) AppendUnavailability(ctx context.Context, doctorID string, window models.UnavailabilityWindow) error {
	payload, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("marshal unavailability window: %w", err)
	}
	const query = `UPDATE doctors
SET unavailability = COALESCE(unavailability, '[]'::jsonb) || $2::jsonb, updated_at = $3
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, doctorID, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("append unavailability window: %w", err)
	}
	return nil
}
