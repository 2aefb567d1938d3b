package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. Each booking-specific kind maps one failure mode of the
// slot validation pipeline so callers can tell apart why a slot was rejected.
var (
	ErrInvalidInput        = New("INVALID_INPUT", http.StatusBadRequest, "missing or malformed input")
	ErrNoScheduleForDay    = New("NO_SCHEDULE_FOR_DAY", http.StatusBadRequest, "doctor has no working hours on this day")
	ErrOutsideWorkingHours = New("OUTSIDE_WORKING_HOURS", http.StatusBadRequest, "requested slot is outside the doctor's working hours")
	ErrOverlapsBreak       = New("OVERLAPS_BREAK", http.StatusBadRequest, "requested slot overlaps a scheduled break")
	ErrDoctorUnavailable   = New("DOCTOR_UNAVAILABLE", http.StatusBadRequest, "doctor is unavailable during the requested slot")
	ErrSlotAlreadyBooked   = New("SLOT_ALREADY_BOOKED", http.StatusConflict, "doctor already booked for this time slot")
	ErrInvalidDuration     = New("INVALID_DURATION", http.StatusBadRequest, "end time must be after start time")
	ErrPersistenceFailure  = New("PERSISTENCE_FAILURE", http.StatusInternalServerError, "failed to persist booking")
	ErrRateUnavailable     = New("RATE_UNAVAILABLE", http.StatusBadGateway, "currency conversion rate unavailable")

	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
