package handler

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/carebook/carebook-api/internal/dto"
	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
	"github.com/carebook/carebook-api/pkg/response"
)

type paymentService interface {
	CreateCheckout(ctx context.Context, claims *models.JWTClaims, appointmentID string) (*dto.CheckoutSession, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type receiptService interface {
	Link(ctx context.Context, claims *models.JWTClaims, appointmentID string) (*dto.ReceiptLink, error)
	Open(token string) (*os.File, string, error)
}

// PaymentHandler exposes checkout, webhook and receipt endpoints.
type PaymentHandler struct {
	payments paymentService
	receipts receiptService
}

// NewPaymentHandler constructs PaymentHandler. receipts may be nil when
// receipt generation is disabled.
func NewPaymentHandler(payments paymentService, receipts receiptService) *PaymentHandler {
	return &PaymentHandler{payments: payments, receipts: receipts}
}

// Checkout godoc
// @Summary Open a payment session for a pending appointment
// @Tags Payments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.payments.CreateCheckout(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Webhook godoc
// @Summary Payment provider event callback
// @Tags Payments
// @Accept json
// @Success 200 "OK"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "failed to read webhook body"))
		return
	}
	signature := c.GetHeader("Webhook-Signature")
	if err := h.payments.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// ReceiptLink godoc
// @Summary Get a signed download link for an appointment receipt
// @Tags Payments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/receipt [get]
func (h *PaymentHandler) ReceiptLink(c *gin.Context) {
	if h.receipts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "receipts are disabled"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.receipts.Link(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadReceipt godoc
// @Summary Download a receipt using a signed token
// @Tags Payments
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /receipts/download [get]
func (h *PaymentHandler) DownloadReceipt(c *gin.Context) {
	if h.receipts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "receipts are disabled"))
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "token is required"))
		return
	}
	file, filename, err := h.receipts.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
