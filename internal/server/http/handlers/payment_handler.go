package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 1 << 20
)

// PaymentHandler serves payment confirmation and processor webhooks.
type PaymentHandler struct {
	facade PaymentFacade
	logger *slog.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{facade: facade, logger: logger}
}

// Confirm handles POST /api/payments/confirm.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domainErrors.ErrMissingPaymentIntent)
		return
	}

	orderID, alreadyPaid, err := h.facade.ConfirmPayment(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		if StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("payment confirmation failed",
				slog.String("payment_intent", req.PaymentIntentID),
				slog.String("error", err.Error()))
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConfirmPaymentResponse{Success: true, OrderID: orderID, AlreadyPaid: alreadyPaid})
}

// Webhook handles POST /api/stripe/webhook.
//
// Deliveries that can never succeed are acknowledged so the processor stops retrying;
// transient failures answer 500 to get a redelivery.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), err == nil && len(payload) > maxWebhookBody:
		h.logger.Warn("webhook payload too large", slog.Int("limit", maxWebhookBody))
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "payload too large"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable body"})
		return
	}

	err = h.facade.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrInvalidSignature):
		writeError(c, err)
		return
	case errors.Is(err, domainErrors.ErrValidation), errors.Is(err, domainErrors.ErrNotFound):
		h.logger.Warn("webhook acknowledged without effect", slog.String("error", err.Error()))
	default:
		h.logger.Error("webhook processing failed", slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}
	c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}
