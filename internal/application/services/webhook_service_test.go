package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/application/services"
	"github.com/projevo/escrow-service/internal/domain"
)

func captureEvent(p *domain.Payment) *application.WebhookEvent {
	return &application.WebhookEvent{
		GatewayReference: "tx-" + p.ID,
		OrderID:          p.GatewayOrderID,
		Event:            domain.EventChargeCaptured,
		StatusCode:       "200",
		GrossAmount:      "28375000.00",
	}
}

func TestWebhookService_IngestAppliesTransition(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	_, first := setupProject(t, env, 25_000_000, 1)

	_, _, err := env.escrow.InitiatePayment(ctx, first.ID, "client-1")
	require.NoError(t, err)

	event := captureEvent(first)
	require.NoError(t, env.webhooks.Ingest(ctx, event))

	payment, err := env.payments.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInEscrow, payment.Status)
	assert.True(t, event.Processed)
}

func TestWebhookService_DuplicateDeliveryIsIgnored(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	_, first := setupProject(t, env, 25_000_000, 1)

	_, _, err := env.escrow.InitiatePayment(ctx, first.ID, "client-1")
	require.NoError(t, err)

	require.NoError(t, env.webhooks.Ingest(ctx, captureEvent(first)))

	// the gateway redelivers the same notification
	require.NoError(t, env.webhooks.Ingest(ctx, captureEvent(first)))

	payment, err := env.payments.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInEscrow, payment.Status)

	// only the first delivery moved money
	entries, err := env.ledger.ListByPayment(ctx, first.ID)
	require.NoError(t, err)
	holds := 0
	for _, e := range entries {
		if e.Kind == domain.KindEscrowHold && e.Amount > 0 {
			holds++
		}
	}
	assert.Equal(t, 1, holds)
}

func TestWebhookService_LateEventClosesWithoutMoving(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	_, first := setupProject(t, env, 25_000_000, 1)

	settleTermin(t, env, first.ID)

	// a capture notification straggling in after settlement
	late := captureEvent(first)
	late.GatewayReference = "tx-late"
	require.NoError(t, env.webhooks.Ingest(ctx, late))

	payment, err := env.payments.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSettle, payment.Status)
	assert.True(t, late.Processed)

	// the replay shows up in history as a rejected attempt
	history, err := env.payments.LoadHistory(ctx, first.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.True(t, last.Rejected)
	assert.Equal(t, services.ActorGateway, last.Actor)
}

func TestWebhookService_RecordedButUnappliedStaysQueued(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	// order ID matches no payment; ingest still answers success because the
	// event is durable, and the reconciler owns the retry
	orphan := &application.WebhookEvent{
		GatewayReference: "tx-orphan",
		OrderID:          "PJV-unknown",
		Event:            domain.EventChargeCaptured,
	}
	require.NoError(t, env.webhooks.Ingest(ctx, orphan))

	pending, err := env.webhookLog.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tx-orphan", pending[0].GatewayReference)
}
