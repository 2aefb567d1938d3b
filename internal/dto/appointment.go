package dto

import (
	"time"

	"github.com/carebook/carebook-api/internal/models"
)

// BookAppointmentRequest asks for a slot with a doctor. Times are ISO-8601
// instants; the patient is implied by the authenticated user.
type BookAppointmentRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// UpdateAppointmentStatusRequest moves an appointment through its lifecycle.
type UpdateAppointmentStatusRequest struct {
	AppointmentID string                   `json:"appointment_id" validate:"required"`
	Status        models.AppointmentStatus `json:"status" validate:"required"`
}

// CheckoutSession is the redirect handle returned by the payment provider.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// ReceiptLink points at a rendered payment receipt.
type ReceiptLink struct {
	AppointmentID string    `json:"appointment_id"`
	URL           string    `json:"url"`
	ExpiresAt     time.Time `json:"expires_at"`
}
