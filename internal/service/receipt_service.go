package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
	"github.com/carebook/carebook-api/pkg/export"
	"github.com/carebook/carebook-api/pkg/jobs"
	"github.com/carebook/carebook-api/pkg/storage"
)

// ReceiptService renders PDF receipts for paid appointments in the background
// and serves them through signed, expiring download links.
type ReceiptService struct {
	appointments paymentAppointmentReader
	exporter     *export.PDFExporter
	store        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	queue        *jobs.Queue
	logger       *zap.Logger
}

// NewReceiptService constructs a ReceiptService.
func NewReceiptService(
	appointments paymentAppointmentReader,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg jobs.QueueConfig,
	logger *zap.Logger,
) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{
		appointments: appointments,
		exporter:     export.NewPDFExporter(),
		store:        store,
		signer:       signer,
		logger:       logger,
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("receipts", s.render, cfg)
	return s
}

// Start launches the rendering workers.
func (s *ReceiptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the rendering workers.
func (s *ReceiptService) Stop() {
	s.queue.Stop()
}

// Issue schedules receipt generation for an appointment. Failures are logged
// and retried by the queue.
func (s *ReceiptService) Issue(appointmentID string) {
	if s == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      appointmentID,
		Type:    "receipt.render",
		Payload: appointmentID,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue receipt job", zap.String("appointment_id", appointmentID), zap.Error(err))
	}
}

// Link returns a signed download link for the appointment's receipt. The
// receipt is rendered on the spot if the background job has not produced it
// yet.
func (s *ReceiptService) Link(ctx context.Context, claims *models.JWTClaims, appointmentID string) (*dto.ReceiptLink, error) {
	if s == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipts are disabled")
	}
	detail, err := s.loadPaid(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if claims.Role != models.RoleAdmin && claims.UserID != detail.PatientUserID && claims.UserID != detail.DoctorUserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not a participant of this appointment")
	}

	filename := receiptFilename(detail.ID)
	if _, err := os.Stat(s.store.Path(filename)); err != nil {
		if !os.IsNotExist(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check receipt file")
		}
		if err := s.renderDetail(detail); err != nil {
			return nil, err
		}
	}

	token, expiresAt, err := s.signer.Generate(detail.ID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &dto.ReceiptLink{
		AppointmentID: detail.ID,
		URL:           fmt.Sprintf("/receipts/download?token=%s", token),
		ExpiresAt:     expiresAt,
	}, nil
}

// Open resolves a signed token to the receipt file for streaming.
func (s *ReceiptService) Open(token string) (*os.File, string, error) {
	if s == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipts are disabled")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open receipt")
	}
	return file, filepath.Base(relPath), nil
}

func (s *ReceiptService) render(ctx context.Context, job jobs.Job) error {
	appointmentID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("receipt job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	detail, err := s.loadPaid(ctx, appointmentID)
	if err != nil {
		return err
	}
	return s.renderDetail(detail)
}

func (s *ReceiptService) renderDetail(detail *models.AppointmentDetail) error {
	duration := detail.EndTime.Sub(detail.StartTime)
	data := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows: []map[string]string{
			{"Field": "Receipt No", "Value": detail.ID},
			{"Field": "Doctor", "Value": detail.DoctorName},
			{"Field": "Patient", "Value": detail.PatientName},
			{"Field": "Start", "Value": detail.StartTime.Format(time.RFC1123)},
			{"Field": "End", "Value": detail.EndTime.Format(time.RFC1123)},
			{"Field": "Duration", "Value": duration.String()},
			{"Field": "Status", "Value": string(detail.Status)},
		},
		Summary: []string{fmt.Sprintf("Total paid: INR %d", detail.Fee)},
	}

	pdf, err := s.exporter.Render(data, "Appointment Receipt")
	if err != nil {
		return fmt.Errorf("render receipt %s: %w", detail.ID, err)
	}
	if _, err := s.store.Save(receiptFilename(detail.ID), pdf); err != nil {
		return fmt.Errorf("store receipt %s: %w", detail.ID, err)
	}
	s.logger.Info("receipt rendered", zap.String("appointment_id", detail.ID))
	return nil
}

func (s *ReceiptService) loadPaid(ctx context.Context, appointmentID string) (*models.AppointmentDetail, error) {
	detail, err := s.appointments.FindDetailByID(ctx, appointmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "appointment not found")
	}
	if detail.Status != models.AppointmentBooked && detail.Status != models.AppointmentCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "receipts are only available for paid appointments")
	}
	return detail, nil
}

func receiptFilename(appointmentID string) string {
	return fmt.Sprintf("receipt-%s.pdf", appointmentID)
}
