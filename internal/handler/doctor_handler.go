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

type doctorService interface {
	Get(ctx context.Context, id string) (*models.Doctor, error)
	ReplaceSchedule(ctx context.Context, userID string, req dto.ReplaceScheduleRequest) (*models.Doctor, error)
	UpdateScheduleEntry(ctx context.Context, userID string, index int, req dto.UpdateScheduleEntryRequest) (*models.Doctor, error)
	AddUnavailability(ctx context.Context, userID string, req dto.AddUnavailabilityRequest) (*models.Doctor, error)
}

// DoctorHandler exposes doctor profile and schedule endpoints.
type DoctorHandler struct {
	doctors doctorService
}

// NewDoctorHandler constructs DoctorHandler.
func NewDoctorHandler(doctors doctorService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors}
}

// Get godoc
// @Summary Get a doctor's public profile including the weekly schedule
// @Tags Doctors
// @Produce json
// @Param doctorId path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{doctorId} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.Get(c.Request.Context(), c.Param("doctorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// ReplaceSchedule godoc
// @Summary Replace the caller's weekly schedule
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceScheduleRequest true "Weekly schedule"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule [put]
func (h *DoctorHandler) ReplaceSchedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.ReplaceSchedule(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// UpdateScheduleEntry godoc
// @Summary Replace one schedule entry by index
// @Tags Doctors
// @Accept json
// @Produce json
// @Param index path int true "Entry index"
// @Param payload body dto.UpdateScheduleEntryRequest true "Schedule entry"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/entries/{index} [put]
func (h *DoctorHandler) UpdateScheduleEntry(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "index must be an integer"))
		return
	}
	var req dto.UpdateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.UpdateScheduleEntry(c.Request.Context(), claims.UserID, index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// AddUnavailability godoc
// @Summary Add an unavailability window to the caller's calendar
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body dto.AddUnavailabilityRequest true "Unavailability window"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/unavailability [post]
func (h *DoctorHandler) AddUnavailability(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AddUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.AddUnavailability(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}
