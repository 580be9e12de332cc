package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/campus-portal/internal/application"
)

// maxWebhookBody bounds the size of a gateway delivery.
const maxWebhookBody = 64 << 10

// GatewayEventHandler applies payment gateway deliveries.
type GatewayEventHandler interface {
	HandleGatewayEvent(ctx context.Context, event application.GatewayEvent) (application.GatewayOutcome, error)
}

type PaymentWebhookHandler struct {
	service   GatewayEventHandler
	logger    *slog.Logger
	responder responder
}

func NewPaymentWebhookHandler(service GatewayEventHandler, logger *slog.Logger) *PaymentWebhookHandler {
	logger = defaultLogger(logger)
	return &PaymentWebhookHandler{service: service, logger: logger, responder: newResponder(logger)}
}

type gatewayEventDTO struct {
	EventType       string `json:"event_type"`
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
}

type webhookResponse struct {
	Outcome application.GatewayOutcome `json:"outcome"`
}

func (h *PaymentWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Unknown payload fields are ignored.
	var body gatewayEventDTO
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err := decoder.Decode(&body); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := handlerLogger(ctx, h.logger, "PaymentWebhookHandler", "Receive", "event_type", body.EventType, "intent_id", body.PaymentIntentID)
	outcome, err := h.service.HandleGatewayEvent(ctx, application.GatewayEvent{
		EventType:       body.EventType,
		PaymentIntentID: body.PaymentIntentID,
		Status:          body.Status,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "gateway delivery processed", "outcome", outcome)
	h.responder.writeJSON(ctx, w, http.StatusOK, webhookResponse{Outcome: outcome})
}
