package dto

import (
	"time"

	"github.com/carebook/carebook-api/internal/models"
)

// ReplaceScheduleRequest swaps a doctor's entire weekly schedule.
type ReplaceScheduleRequest struct {
	Schedule []models.ScheduleEntry `json:"schedule" validate:"required,min=1,max=7"`
}

// UpdateScheduleEntryRequest replaces the entry at the given index.
type UpdateScheduleEntryRequest struct {
	Entry models.ScheduleEntry `json:"entry" validate:"required"`
}

// AddUnavailabilityRequest appends an unavailability window.
type AddUnavailabilityRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}
