package models

import "time"

// AppointmentStatus is the booking lifecycle state.
type AppointmentStatus string

const (
	// AppointmentPending is the initial state: slot reserved, payment due.
	AppointmentPending AppointmentStatus = "pending"
	// AppointmentBooked means payment was confirmed.
	AppointmentBooked AppointmentStatus = "booked"
	// AppointmentCompleted and AppointmentCancelled are terminal.
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentBooked, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Active statuses count for conflict detection.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentPending || s == AppointmentBooked
}

// CanTransitionTo encodes the allowed lifecycle moves:
// pending->booked, pending/booked->completed, pending/booked->cancelled.
// Terminal states accept nothing.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentPending:
		return next == AppointmentBooked || next == AppointmentCompleted || next == AppointmentCancelled
	case AppointmentBooked:
		return next == AppointmentCompleted || next == AppointmentCancelled
	}
	return false
}

// Appointment is a committed slot [StartTime, EndTime) for a doctor and a
// patient. Fee is stored in whole INR.
type Appointment struct {
	ID        string            `db:"id" json:"id"`
	DoctorID  string            `db:"doctor_id" json:"doctor_id"`
	PatientID string            `db:"patient_id" json:"patient_id"`
	StartTime time.Time         `db:"start_time" json:"start_time"`
	EndTime   time.Time         `db:"end_time" json:"end_time"`
	Fee       int64             `db:"fee" json:"fee"`
	Status    AppointmentStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentDetail joins the participant names for list views.
type AppointmentDetail struct {
	Appointment
	DoctorName    string `db:"doctor_name" json:"doctor_name"`
	DoctorUserID  string `db:"doctor_user_id" json:"-"`
	PatientName   string `db:"patient_name" json:"patient_name"`
	PatientUserID string `db:"patient_user_id" json:"-"`
}

// AppointmentFilter narrows appointment list queries.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Page      int
	PageSize  int
}
