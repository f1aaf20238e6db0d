package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/projevo/escrow-service/internal/application"
)

// WebhookService ingests gateway notifications. Delivery is at-least-once
// and unordered, so every event is durably recorded and deduplicated by
// (gateway reference, event) before the state machine ever sees it.
type WebhookService struct {
	escrow     *EscrowService
	webhookLog application.WebhookLogRepository
	payments   application.PaymentRepository
	tx         application.TxRunner
	logger     *slog.Logger
}

func NewWebhookService(
	escrow *EscrowService,
	webhookLog application.WebhookLogRepository,
	payments application.PaymentRepository,
	tx application.TxRunner,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		escrow:     escrow,
		webhookLog: webhookLog,
		payments:   payments,
		tx:         tx,
		logger:     logger,
	}
}

// Ingest records the event durably, then applies it. The caller may answer
// the gateway with 200 as soon as Ingest returns nil: a recorded event that
// failed to apply is retried by the reconciler, not redelivered.
func (s *WebhookService) Ingest(ctx context.Context, event *application.WebhookEvent) error {
	event.ID = uuid.New().String()
	event.ReceivedAt = time.Now().UTC()

	var fresh bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		fresh, err = s.webhookLog.Record(ctx, tx, event)
		return err
	})
	if err != nil {
		return application.NewInternalError(err)
	}

	if !fresh {
		s.logger.Info("duplicate gateway event ignored",
			"gateway_reference", event.GatewayReference,
			"event", event.Event,
		)
		return nil
	}

	if applyErr := s.Process(ctx, event); applyErr != nil {
		// The event is durable; processing is deferred to the reconciler.
		s.logger.Error("webhook recorded but not applied yet",
			"gateway_reference", event.GatewayReference,
			"order_id", event.OrderID,
			"error", applyErr,
		)
	}
	return nil
}

// Process applies one recorded event to its payment and marks it processed.
// Safe to call again for the same event: a replayed transition is rejected
// by the state machine without moving anything.
func (s *WebhookService) Process(ctx context.Context, event *application.WebhookEvent) error {
	payment, err := s.payments.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		return err
	}

	_, err = s.escrow.ApplyGatewayEvent(ctx, payment.ID, event.Event, event.GatewayReference, ActorGateway)
	if err != nil {
		if application.CategorizeError(err) != application.CategoryBusinessRule {
			// Transient or infrastructure failure: leave the event queued
			// for the reconciler's next pass.
			return err
		}
		// Already in (or past) the target state: the replay is recorded in
		// history as rejected and the event can be closed out.
		s.logger.Info("gateway event arrived after the fact",
			"payment_id", payment.ID,
			"event", event.Event,
			"status", payment.Status,
		)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.webhookLog.MarkProcessed(ctx, tx, event.ID)
	})
}
