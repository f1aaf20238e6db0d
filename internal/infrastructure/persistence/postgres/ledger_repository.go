package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projevo/escrow-service/internal/domain"
)

const ledgerColumns = `id, payment_id, project_id, termin_index,
	       from_party, to_party, amount, kind, created_at`

// LedgerRepository writes and reads the append-only ledger. There is no
// UPDATE or DELETE here on purpose; corrections are new entries.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
		    id, payment_id, project_id, termin_index,
		    from_party, to_party, amount, kind, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	_, err := q.Exec(ctx, query,
		entry.ID,
		entry.PaymentID,
		entry.ProjectID,
		entry.TerminIndex,
		string(entry.FromParty),
		string(entry.ToParty),
		int64(entry.Amount),
		string(entry.Kind),
		entry.At,
	)

	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListByPayment(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE payment_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query ledger by payment: %w", err)
	}
	return collectLedgerEntries(rows)
}

func (r *LedgerRepository) ListByProject(ctx context.Context, projectID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE project_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query ledger by project: %w", err)
	}
	return collectLedgerEntries(rows)
}

// ListUnsweptSettled returns settled payments whose service fee is still
// parked in the escrow account, i.e. no fee entry has been written yet.
func (r *LedgerRepository) ListUnsweptSettled(ctx context.Context, limit int) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.status = $1
		  AND p.service_fee_amount > 0
		  AND NOT EXISTS (
		      SELECT 1 FROM ledger_entries le
		      WHERE le.payment_id = p.id AND le.kind = $2
		  )
		ORDER BY p.updated_at ASC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(domain.StatusSettle), string(domain.KindFee), limit)
	if err != nil {
		return nil, fmt.Errorf("query unswept settled payments: %w", err)
	}
	return collectPayments(rows)
}

func collectLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerEntry, error) {
		var m LedgerEntryModel
		err := row.Scan(
			&m.ID, &m.PaymentID, &m.ProjectID, &m.TerminIndex,
			&m.FromParty, &m.ToParty, &m.Amount, &m.Kind, &m.CreatedAt,
		)
		return toDomainLedgerEntry(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan ledger entries: %w", err)
	}
	return results, nil
}
