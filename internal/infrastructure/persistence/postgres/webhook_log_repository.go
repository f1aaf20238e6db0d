package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence"
)

// WebhookLogRepository records delivered gateway notifications. The unique
// (gateway_reference, event) constraint is the idempotency key; a replayed
// delivery inserts nothing.
type WebhookLogRepository struct {
	db *pgxpool.Pool
}

func NewWebhookLogRepository(db *pgxpool.Pool) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Record inserts the event, returning false when this (reference, event)
// pair was already delivered.
func (r *WebhookLogRepository) Record(ctx context.Context, tx pgx.Tx, event *application.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (
		    id, gateway_reference, order_id, event, status_code,
		    gross_amount, raw_payload, processed, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	_, err := q.Exec(ctx, query,
		event.ID,
		event.GatewayReference,
		event.OrderID,
		string(event.Event),
		event.StatusCode,
		event.GrossAmount,
		event.RawPayload,
		event.Processed,
		event.ReceivedAt,
	)

	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return true, nil
}

func (r *WebhookLogRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error {
	query := `UPDATE webhook_events SET processed = TRUE WHERE id = $1`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	if _, err := q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}
	return nil
}

// ListUnprocessed feeds the reconciler: events recorded durably but whose
// transition never committed.
func (r *WebhookLogRepository) ListUnprocessed(ctx context.Context, limit int) ([]*application.WebhookEvent, error) {
	query := `
		SELECT id, gateway_reference, order_id, event, status_code,
		       gross_amount, raw_payload, processed, received_at
		FROM webhook_events
		WHERE processed = FALSE
		ORDER BY received_at ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed webhook events: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*application.WebhookEvent, error) {
		var m WebhookEventModel
		err := row.Scan(
			&m.ID, &m.GatewayReference, &m.OrderID, &m.Event, &m.StatusCode,
			&m.GrossAmount, &m.RawPayload, &m.Processed, &m.ReceivedAt,
		)
		return toDomainWebhookEvent(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan webhook events: %w", err)
	}
	return results, nil
}
