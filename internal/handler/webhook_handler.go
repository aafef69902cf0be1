package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/jbs-labs/booking-service/internal/dispatcher"
	"github.com/jbs-labs/booking-service/internal/dto"
	"github.com/jbs-labs/booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

const (
	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"

	maxWebhookBody = int64(64 << 10)
)

// Publisher wakes the notification dispatcher after a confirmation commits.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

type WebhookHandler struct {
	svc       service.WebhookService
	publisher Publisher
}

func NewWebhookHandler(svc service.WebhookService, publisher Publisher) *WebhookHandler {
	return &WebhookHandler{svc: svc, publisher: publisher}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/payments/webhook", h.HandleWebhook)
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody)
	payload, err := io.ReadAll(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}

	signature := c.Request().Header.Get(headerSignature)
	gatewayEventID := c.Request().Header.Get(headerEventID)

	outcome, err := h.svc.Process(c.Request().Context(), payload, signature, gatewayEventID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			log.Printf("[Webhook] SECURITY rejected callback with bad signature from %s", c.RealIP())
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		case errors.Is(err, service.ErrBadPayload), errors.Is(err, service.ErrMissingEventID):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownOrder):
			// Accepted at transport level; the gateway's retry policy covers
			// redelivery once the order becomes resolvable.
			log.Printf("[Webhook] unknown order in event %s: %v", gatewayEventID, err)
			return c.JSON(http.StatusOK, dto.WebhookResponse{Status: "accepted"})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if outcome.Duplicate {
		return c.JSON(http.StatusOK, dto.WebhookResponse{Status: "duplicate"})
	}

	if outcome.Job != nil && h.publisher != nil {
		if err := h.publisher.Publish(dispatcher.RoutingKeyCreated, dispatcher.JobMessage{JobID: outcome.Job.ID}); err != nil {
			// The dispatcher's poll loop picks the job up regardless.
			log.Printf("[Webhook] failed to enqueue notification job %d: %v", outcome.Job.ID, err)
		}
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Status: "processed"})
}
