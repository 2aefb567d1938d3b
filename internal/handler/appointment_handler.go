package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
	"github.com/carebook/carebook-api/pkg/response"
)

type bookingService interface {
	Book(ctx context.Context, patientUserID, doctorID string, req dto.BookAppointmentRequest) (*models.Appointment, error)
}

type appointmentService interface {
	List(ctx context.Context, claims *models.JWTClaims, filter models.AppointmentFilter) ([]models.AppointmentDetail, *models.Pagination, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.AppointmentDetail, error)
	UpdateStatus(ctx context.Context, claims *models.JWTClaims, req dto.UpdateAppointmentStatusRequest) (*models.Appointment, error)
	Delete(ctx context.Context, claims *models.JWTClaims, id string) error
	ExportCSV(ctx context.Context, claims *models.JWTClaims, filter models.AppointmentFilter) ([]byte, string, error)
}

// AppointmentHandler exposes booking and appointment lifecycle endpoints.
type AppointmentHandler struct {
	bookings     bookingService
	appointments appointmentService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(bookings bookingService, appointments appointmentService) *AppointmentHandler {
	return &AppointmentHandler{bookings: bookings, appointments: appointments}
}

// Book godoc
// @Summary Book an appointment slot with a doctor
// @Tags Appointments
// @Accept json
// @Produce json
// @Param doctorId path string true "Doctor ID"
// @Param payload body dto.BookAppointmentRequest true "Requested slot"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /doctors/{doctorId}/appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appointment, err := h.bookings.Book(c.Request.Context(), claims.UserID, c.Param("doctorId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appointment)
}

// List godoc
// @Summary List appointments visible to the caller
// @Tags Appointments
// @Produce json
// @Param doctorId query string false "Filter by doctor (admin only)"
// @Param patientId query string false "Filter by patient (admin only)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.AppointmentFilter
	filter.DoctorID = c.Query("doctorId")
	filter.PatientID = c.Query("patientId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	appointments, pagination, err := h.appointments.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, pagination)
}

// Export godoc
// @Summary Download the caller's appointments as CSV
// @Tags Appointments
// @Produce text/csv
// @Param doctorId query string false "Filter by doctor (admin only)"
// @Param patientId query string false "Filter by patient (admin only)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /exports/appointments [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.AppointmentFilter
	filter.DoctorID = c.Query("doctorId")
	filter.PatientID = c.Query("patientId")

	payload, filename, err := h.appointments.ExportCSV(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Get godoc
// @Summary Get appointment detail
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appointment, err := h.appointments.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// UpdateStatus godoc
// @Summary Move an appointment through its lifecycle
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/status [put]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.AppointmentID = c.Param("id")
	appointment, err := h.appointments.UpdateStatus(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// Delete godoc
// @Summary Delete an appointment record
// @Tags Appointments
// @Param id path string true "Appointment ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.appointments.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
