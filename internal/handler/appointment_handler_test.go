package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/middleware"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type bookingServiceMock struct {
	resp       *models.Appointment
	err        error
	doctorID   string
	userID     string
	lastReq    dto.BookAppointmentRequest
	bookCalled bool
}

func (m *bookingServiceMock) Book(_ context.Context, patientUserID, doctorID string, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	m.bookCalled = true
	m.userID = patientUserID
	m.doctorID = doctorID
	m.lastReq = req
	return m.resp, m.err
}

type appointmentServiceMock struct {
	listResp     []models.AppointmentDetail
	listErr      error
	getResp      *models.AppointmentDetail
	getErr       error
	updateResp   *models.Appointment
	updateErr    error
	deleteErr    error
	exportResp   []byte
	exportName   string
	exportErr    error
	lastFilter   models.AppointmentFilter
	lastStatus   dto.UpdateAppointmentStatusRequest
	deletedID    string
	updateCalled bool
}

func (m *appointmentServiceMock) List(_ context.Context, _ *models.JWTClaims, filter models.AppointmentFilter) ([]models.AppointmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *appointmentServiceMock) Get(_ context.Context, _ *models.JWTClaims, _ string) (*models.AppointmentDetail, error) {
	return m.getResp, m.getErr
}

func (m *appointmentServiceMock) UpdateStatus(_ context.Context, _ *models.JWTClaims, req dto.UpdateAppointmentStatusRequest) (*models.Appointment, error) {
	m.updateCalled = true
	m.lastStatus = req
	return m.updateResp, m.updateErr
}

func (m *appointmentServiceMock) Delete(_ context.Context, _ *models.JWTClaims, id string) error {
	m.deletedID = id
	return m.deleteErr
}

func (m *appointmentServiceMock) ExportCSV(_ context.Context, _ *models.JWTClaims, filter models.AppointmentFilter) ([]byte, string, error) {
	m.lastFilter = filter
	return m.exportResp, m.exportName, m.exportErr
}

func patientContext(t *testing.T, w *httptest.ResponseRecorder, method, target string, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "pat-user-1", Role: models.RolePatient})
	return c
}

func TestAppointmentHandlerBook(t *testing.T) {
	mockBookings := &bookingServiceMock{
		resp: &models.Appointment{ID: "apt-1", Status: models.AppointmentPending, Fee: 600},
	}
	h := NewAppointmentHandler(mockBookings, &appointmentServiceMock{})

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodPost, "/doctors/doc-1/appointments",
		`{"start_time":"2026-09-07T03:30:00Z","end_time":"2026-09-07T04:30:00Z"}`)
	c.Params = gin.Params{{Key: "doctorId", Value: "doc-1"}}

	h.Book(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockBookings.bookCalled)
	assert.Equal(t, "pat-user-1", mockBookings.userID)
	assert.Equal(t, "doc-1", mockBookings.doctorID)
	assert.Equal(t, time.Date(2026, time.September, 7, 3, 30, 0, 0, time.UTC), mockBookings.lastReq.StartTime.UTC())
}

func TestAppointmentHandlerBookInvalidBody(t *testing.T) {
	mockBookings := &bookingServiceMock{}
	h := NewAppointmentHandler(mockBookings, &appointmentServiceMock{})

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodPost, "/doctors/doc-1/appointments", `{"start_time":"not-a-date"}`)

	h.Book(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockBookings.bookCalled)
}

func TestAppointmentHandlerBookConflict(t *testing.T) {
	h := NewAppointmentHandler(&bookingServiceMock{err: appErrors.ErrSlotAlreadyBooked}, &appointmentServiceMock{})

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodPost, "/doctors/doc-1/appointments",
		`{"start_time":"2026-09-07T03:30:00Z","end_time":"2026-09-07T04:30:00Z"}`)
	c.Params = gin.Params{{Key: "doctorId", Value: "doc-1"}}

	h.Book(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAppointmentHandlerBookRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := &bookingServiceMock{}
	h := NewAppointmentHandler(mockBookings, &appointmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/doctors/doc-1/appointments", bytes.NewBufferString(`{}`))
	c.Request = req

	h.Book(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mockBookings.bookCalled)
}

func TestAppointmentHandlerListParsesQuery(t *testing.T) {
	mockSvc := &appointmentServiceMock{}
	h := NewAppointmentHandler(&bookingServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodGet, "/appointments?doctorId=doc-1&page=2&limit=5", "")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doc-1", mockSvc.lastFilter.DoctorID)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
}

func TestAppointmentHandlerExport(t *testing.T) {
	mockSvc := &appointmentServiceMock{
		exportResp: []byte("Appointment ID,Status\napt-1,booked\n"),
		exportName: "appointments-2026-09-01.csv",
	}
	h := NewAppointmentHandler(&bookingServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodGet, "/exports/appointments?doctorId=doc-1", "")

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doc-1", mockSvc.lastFilter.DoctorID)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="appointments-2026-09-01.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, string(mockSvc.exportResp), w.Body.String())
}

func TestAppointmentHandlerExportRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAppointmentHandler(&bookingServiceMock{}, &appointmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exports/appointments", nil)
	c.Request = req

	h.Export(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppointmentHandlerUpdateStatusUsesPathID(t *testing.T) {
	mockSvc := &appointmentServiceMock{
		updateResp: &models.Appointment{ID: "apt-1", Status: models.AppointmentCancelled},
	}
	h := NewAppointmentHandler(&bookingServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodPut, "/appointments/apt-1/status", `{"status":"cancelled"}`)
	c.Params = gin.Params{{Key: "id", Value: "apt-1"}}

	h.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "apt-1", mockSvc.lastStatus.AppointmentID)
	assert.Equal(t, models.AppointmentCancelled, mockSvc.lastStatus.Status)
}

func TestAppointmentHandlerDelete(t *testing.T) {
	mockSvc := &appointmentServiceMock{}
	h := NewAppointmentHandler(&bookingServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c := patientContext(t, w, http.MethodDelete, "/appointments/apt-1", "")
	c.Params = gin.Params{{Key: "id", Value: "apt-1"}}

	h.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "apt-1", mockSvc.deletedID)
}
