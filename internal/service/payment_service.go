package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	"github.com/carebook/carebook-api/pkg/config"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type paymentAppointmentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.AppointmentDetail, error)
}

type bookedMarker interface {
	MarkBooked(ctx context.Context, appointmentID string) (*models.Appointment, error)
}

type receiptIssuer interface {
	Issue(appointmentID string)
}

// PaymentService drives the hosted-checkout flow with the payment provider.
// A session is created for a pending appointment; the provider calls the
// webhook once the patient pays, which flips the appointment to booked.
type PaymentService struct {
	cfg          config.PaymentsConfig
	appointments paymentAppointmentReader
	bookings     bookedMarker
	currency     *CurrencyService
	receipts     receiptIssuer
	notifier     notificationDispatcher
	client       *http.Client
	logger       *zap.Logger
}

// NewPaymentService constructs a PaymentService. receipts may be nil when
// receipt generation is disabled.
func NewPaymentService(
	cfg config.PaymentsConfig,
	appointments paymentAppointmentReader,
	bookings bookedMarker,
	currency *CurrencyService,
	receipts receiptIssuer,
	notifier notificationDispatcher,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaymentService{
		cfg:          cfg,
		appointments: appointments,
		bookings:     bookings,
		currency:     currency,
		receipts:     receipts,
		notifier:     notifier,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

type checkoutSessionRequest struct {
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckout opens a payment session for the patient's pending
// appointment and returns the hosted checkout URL.
func (s *PaymentService) CreateCheckout(ctx context.Context, claims *models.JWTClaims, appointmentID string) (*dto.CheckoutSession, error) {
	if appointmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "appointmentId is required")
	}

	detail, err := s.appointments.FindDetailByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if claims.Role != models.RoleAdmin && claims.UserID != detail.PatientUserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the appointment's patient can pay for it")
	}
	if detail.Status != models.AppointmentPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("appointment is %s, only pending appointments can be paid", detail.Status))
	}

	rate, err := s.currency.INRToUSDRate(ctx)
	if err != nil {
		return nil, err
	}
	amountMinor := ConvertToMinorUnits(detail.Fee, rate)

	payload := checkoutSessionRequest{
		AmountMinor: amountMinor,
		Currency:    "usd",
		Description: fmt.Sprintf("Appointment with Dr. %s", detail.DoctorName),
		SuccessURL:  joinClientURL(s.cfg.ClientURL, "/payments/success"),
		CancelURL:   joinClientURL(s.cfg.ClientURL, "/payments/cancelled"),
		Metadata:    map[string]string{"appointment_id": detail.ID},
	}

	session, err := s.createSession(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created",
		zap.String("appointment_id", detail.ID),
		zap.String("session_id", session.ID),
		zap.Int64("amount_minor", amountMinor))
	return &dto.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

func (s *PaymentService) createSession(ctx context.Context, payload checkoutSessionRequest) (*checkoutSessionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode checkout request")
	}

	endpoint, err := url.JoinPath(s.cfg.ProviderURL, "checkout", "sessions")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid payment provider url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build checkout request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusBadGateway, "payment provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, appErrors.New(appErrors.ErrInternal.Code, http.StatusBadGateway,
			fmt.Sprintf("payment provider returned status %d", resp.StatusCode))
	}

	var session checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusBadGateway, "failed to decode checkout session")
	}
	if session.ID == "" || session.URL == "" {
		return nil, appErrors.New(appErrors.ErrInternal.Code, http.StatusBadGateway, "payment provider returned incomplete session")
	}
	return &session, nil
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook verifies the provider's signature and applies the event.
// Unknown event types are acknowledged without action.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.verifySignature(body, signature) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "malformed webhook payload")
	}

	if event.Type != "checkout.session.completed" {
		s.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
		return nil
	}

	appointmentID := event.Data.Object.Metadata["appointment_id"]
	if appointmentID == "" {
		return appErrors.Clone(appErrors.ErrInvalidInput, "webhook event missing appointment_id metadata")
	}

	appointment, err := s.bookings.MarkBooked(ctx, appointmentID)
	if err != nil {
		return err
	}

	if s.receipts != nil {
		s.receipts.Issue(appointment.ID)
	}
	if s.notifier != nil {
		detail, err := s.appointments.FindDetailByID(ctx, appointment.ID)
		if err == nil {
			s.notifier.Dispatch(detail.PatientUserID, "Your appointment payment was received and the slot is confirmed", models.NotificationData{
				"appointment_id": appointment.ID,
				"start_time":     appointment.StartTime.Format(time.RFC3339),
			})
		} else {
			s.logger.Warn("failed to load appointment for payment notification", zap.String("appointment_id", appointment.ID), zap.Error(err))
		}
	}

	s.logger.Info("appointment payment confirmed",
		zap.String("appointment_id", appointment.ID),
		zap.String("session_id", event.Data.Object.ID))
	return nil
}

func (s *PaymentService) verifySignature(body []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func joinClientURL(base, path string) string {
	joined, err := url.JoinPath(base, path)
	if err != nil {
		return base + path
	}
	return joined
}
