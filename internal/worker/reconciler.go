// Package worker holds the background loops: the reconciler that catches up
// payments the gateway moved while we weren't listening, and the fee sweeper
// that moves retained service fees out of escrow.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/application/services"
	"github.com/projevo/escrow-service/internal/domain"
	"github.com/projevo/escrow-service/internal/infrastructure/midtrans"
)

// TransitionApplier is the slice of the escrow service the reconciler needs.
type TransitionApplier interface {
	ApplyGatewayEvent(ctx context.Context, paymentID string, event domain.Event, gatewayRef, actor string) (*domain.Payment, error)
}

// EventProcessor replays recorded webhook events.
type EventProcessor interface {
	Process(ctx context.Context, event *application.WebhookEvent) error
}

// Reconciler closes the gap between the gateway's state and ours. Webhooks
// are best-effort: a delivery may be recorded but never applied, or never
// arrive at all. The reconciler polls both sides of that gap.
type Reconciler struct {
	payments   application.PaymentRepository
	webhookLog application.WebhookLogRepository
	gateway    application.GatewayClient
	escrow     TransitionApplier
	webhooks   EventProcessor
	interval   time.Duration
	batchSize  int
	cutoff     time.Duration
	logger     *slog.Logger
}

func NewReconciler(
	payments application.PaymentRepository,
	webhookLog application.WebhookLogRepository,
	gateway application.GatewayClient,
	escrow TransitionApplier,
	webhooks EventProcessor,
	interval time.Duration,
	batchSize int,
	cutoff time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		payments:   payments,
		webhookLog: webhookLog,
		gateway:    gateway,
		escrow:     escrow,
		webhooks:   webhooks,
		interval:   interval,
		batchSize:  batchSize,
		cutoff:     cutoff,
		logger:     logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting reconciler", "interval", r.interval, "batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping reconciler")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	r.replayUnprocessedEvents(ctx)
	r.pollStuckPayments(ctx)
}

// replayUnprocessedEvents finishes webhooks that were recorded durably but
// whose transition never committed.
func (r *Reconciler) replayUnprocessedEvents(ctx context.Context) {
	events, err := r.webhookLog.ListUnprocessed(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list unprocessed webhook events", "error", err)
		return
	}

	for _, event := range events {
		if err := r.webhooks.Process(ctx, event); err != nil {
			r.logger.Error("failed to replay webhook event",
				"event_id", event.ID,
				"order_id", event.OrderID,
				"error", err,
			)
		} else {
			r.logger.Info("replayed webhook event", "event_id", event.ID, "order_id", event.OrderID)
		}
	}
}

// pollStuckPayments asks the gateway directly about payments sitting in
// process past the cutoff, covering webhooks that never arrived.
func (r *Reconciler) pollStuckPayments(ctx context.Context) {
	stuck, err := r.payments.FindStuckInProcess(ctx, time.Now().UTC().Add(-r.cutoff), r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch stuck payments", "error", err)
		return
	}

	if len(stuck) == 0 {
		return
	}

	r.logger.Info("reconciling stuck payments", "count", len(stuck))

	for _, p := range stuck {
		status, err := r.gateway.GetTransactionStatus(ctx, p.GatewayOrderID)
		if err != nil {
			r.logger.Error("status poll failed", "payment_id", p.ID, "order_id", p.GatewayOrderID, "error", err)
			continue
		}

		notification := midtrans.Notification{
			TransactionStatus: status.Status,
			TransactionID:     status.TransactionID,
		}
		event, ok := notification.MapEvent()
		if !ok {
			// still pending at the gateway, nothing to do yet
			continue
		}

		_, err = r.escrow.ApplyGatewayEvent(ctx, p.ID, event, status.TransactionID, services.ActorReconciler)
		if err != nil && !domain.IsErrorCode(err, domain.ErrCodeInvalidTransition) {
			r.logger.Error("reconciliation transition failed", "payment_id", p.ID, "event", event, "error", err)
			continue
		}

		r.logger.Info("reconciled stuck payment", "payment_id", p.ID, "event", event)
	}
}
