package handlers

import (
	"io"
	"net/http"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/infrastructure/midtrans"
	"github.com/projevo/escrow-service/internal/interfaces/rest"
)

// HandleMidtransNotification receives gateway webhooks. Midtrans redelivers
// until it sees 200, so 200 is only written once the event is durably
// recorded; the transition itself may still be applied later by the
// reconciler.
func (h *Handlers) HandleMidtransNotification(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	notification, err := midtrans.ParseNotification(raw, h.serverKey)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	event, ok := notification.MapEvent()
	if !ok {
		// progress report, nothing to apply
		h.logger.Info("gateway notification carries no transition",
			"order_id", notification.OrderID,
			"transaction_status", notification.TransactionStatus,
		)
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	webhookEvent := &application.WebhookEvent{
		GatewayReference: notification.TransactionID,
		OrderID:          notification.OrderID,
		Event:            event,
		StatusCode:       notification.StatusCode,
		GrossAmount:      notification.GrossAmount,
		RawPayload:       raw,
	}

	if err := h.webhookService.Ingest(r.Context(), webhookEvent); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
