package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projevo/escrow-service/internal/domain"
)

const paymentColumns = `id, project_id, termin_index,
	       base_amount, tax_amount, service_fee_amount, amount, pending_add_funds,
	       status, gateway_order_id, gateway_reference,
	       attempt_count, version, created_at, updated_at`

// liveProjectFilter hides payments whose project has been soft-deleted.
// Deleting a project archives its payments with it, so the read paths must
// not serve them. Transition and webhook paths load rows directly and are
// unaffected.
const liveProjectFilter = `EXISTS (
		SELECT 1 FROM projects
		WHERE projects.id = payments.project_id AND projects.deleted_at IS NULL
	)`

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
		    id, project_id, termin_index,
		    base_amount, tax_amount, service_fee_amount, amount, pending_add_funds,
		    status, gateway_order_id, gateway_reference,
		    attempt_count, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	p := toPaymentModel(payment)
	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	_, err := q.Exec(ctx, query,
		p.ID,
		p.ProjectID,
		p.TerminIndex,
		p.BaseAmount,
		p.TaxAmount,
		p.ServiceFeeAmount,
		p.Amount,
		p.PendingAddFunds,
		p.Status,
		p.GatewayOrderID,
		p.GatewayReference,
		p.AttemptCount,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// FindByID retrieves a payment whose project is still live.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND ` + liveProjectFilter

	row := r.db.QueryRow(ctx, query, id)
	return scanPayment(row, id)
}

// FindByIDForUpdate retrieves a payment with a row-level lock, serializing
// concurrent transitions on the same payment.
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	var q interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	} = r.db
	if tx != nil {
		q = tx
	}

	row := q.QueryRow(ctx, query, id)
	return scanPayment(row, id)
}

// FindByOrderID retrieves a payment by its gateway order id. Retried
// payments carry fresh order ids, so this is unique over live rows.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = $1`

	row := r.db.QueryRow(ctx, query, orderID)
	return scanPayment(row, orderID)
}

// FindCurrentByTermin returns the most recent payment row for a termin,
// i.e. the latest retry attempt.
func (r *PaymentRepository) FindCurrentByTermin(ctx context.Context, tx pgx.Tx, projectID string, terminIndex int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE project_id = $1 AND termin_index = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var q interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	} = r.db
	if tx != nil {
		q = tx
	}

	row := q.QueryRow(ctx, query, projectID, terminIndex)
	return scanPayment(row, fmt.Sprintf("%s/termin-%d", projectID, terminIndex))
}

// ListByProject lists payments for a project, optionally filtered by status,
// ordered by termin then attempt.
func (r *PaymentRepository) ListByProject(ctx context.Context, projectID string, status *domain.PaymentStatus) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE project_id = $1 AND ($2::text IS NULL OR status = $2)
		  AND ` + liveProjectFilter + `
		ORDER BY termin_index ASC, created_at ASC`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.db.Query(ctx, query, projectID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("query payments by project: %w", err)
	}

	return collectPayments(rows)
}

// FindStuckInProcess lists payments sitting in process longer than the
// cutoff, candidates for reconciliation against the gateway.
func (r *PaymentRepository) FindStuckInProcess(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(domain.StatusProcess), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stuck payments: %w", err)
	}

	return collectPayments(rows)
}

func (r *PaymentRepository) Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET amount = $1, pending_add_funds = $2, status = $3,
		    gateway_reference = $4, attempt_count = $5,
		    version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	p := toPaymentModel(payment)
	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	result, err := q.Exec(ctx, query,
		p.Amount,
		p.PendingAddFunds,
		p.Status,
		p.GatewayReference,
		p.AttemptCount,
		time.Now().UTC(),
		p.ID,
		p.Version,
	)

	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		// either the row vanished or another writer bumped the version
		return domain.NewPaymentNotFoundError(p.ID)
	}

	payment.Version++
	return nil
}

// AppendHistory records one status-change attempt, accepted or rejected.
func (r *PaymentRepository) AppendHistory(ctx context.Context, tx pgx.Tx, paymentID string, change domain.StatusChange) error {
	query := `
		INSERT INTO payment_history (payment_id, status, event, actor, rejected, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	_, err := q.Exec(ctx, query,
		paymentID,
		string(change.Status),
		string(change.Event),
		change.Actor,
		change.Rejected,
		change.At,
	)

	if err != nil {
		return fmt.Errorf("failed to append payment history: %w", err)
	}
	return nil
}

func (r *PaymentRepository) LoadHistory(ctx context.Context, paymentID string) ([]domain.StatusChange, error) {
	query := `
		SELECT payment_id, status, event, actor, rejected, occurred_at
		FROM payment_history
		WHERE payment_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query payment history: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatusChange, error) {
		var m StatusChangeModel
		err := row.Scan(&m.PaymentID, &m.Status, &m.Event, &m.Actor, &m.Rejected, &m.At)
		return toDomainStatusChange(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan payment history: %w", err)
	}
	return results, nil
}

func collectPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		var m PaymentModel
		err := row.Scan(
			&m.ID, &m.ProjectID, &m.TerminIndex,
			&m.BaseAmount, &m.TaxAmount, &m.ServiceFeeAmount, &m.Amount, &m.PendingAddFunds,
			&m.Status, &m.GatewayOrderID, &m.GatewayReference,
			&m.AttemptCount, &m.Version, &m.CreatedAt, &m.UpdatedAt,
		)
		return toDomainPayment(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan payments: %w", err)
	}
	return results, nil
}

// scanPayment converts a database row into a domain Payment.
func scanPayment(row pgx.Row, ref string) (*domain.Payment, error) {
	var m PaymentModel
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.TerminIndex,
		&m.BaseAmount, &m.TaxAmount, &m.ServiceFeeAmount, &m.Amount, &m.PendingAddFunds,
		&m.Status, &m.GatewayOrderID, &m.GatewayReference,
		&m.AttemptCount, &m.Version, &m.CreatedAt, &m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFoundError(ref)
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainPayment(m), nil
}
