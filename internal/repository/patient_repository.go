package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebook/carebook-api/internal/models"
)

// PatientRepository persists patient profiles.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository constructs the repository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Create inserts a patient profile.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	now := time.Now().UTC()
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now
	const query = `INSERT INTO patients (id, user_id, phone, address, created_at, updated_at)
VALUES (:id, :user_id, :phone, :address, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// FindByID fetches a patient by identifier.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	const query = `SELECT id, user_id, phone, address, created_at, updated_at FROM patients WHERE id = $1`
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, err
	}
	return &patient, nil
}

// FindByUserID fetches the patient profile owned by a user account.
func (r *PatientRepository) FindByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	const query = `SELECT id, user_id, phone, address, created_at, updated_at FROM patients WHERE user_id = $1`
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, userID); err != nil {
		return nil, err
	}
	return &patient, nil
}
