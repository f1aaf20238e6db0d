package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projevo/escrow-service/internal/domain"
)

type TerminRepository struct {
	db *pgxpool.Pool
}

func NewTerminRepository(db *pgxpool.Pool) *TerminRepository {
	return &TerminRepository{db: db}
}

// CreateBatch inserts a full schedule in one round trip.
func (r *TerminRepository) CreateBatch(ctx context.Context, tx pgx.Tx, termins []domain.Termin) error {
	if len(termins) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO termins (project_id, termin_index, value, due_at, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, t := range termins {
		batch.Queue(query, t.ProjectID, t.Index, int64(t.Value), t.DueAt, t.Active)
	}

	var results pgx.BatchResults
	if tx != nil {
		results = tx.SendBatch(ctx, batch)
	} else {
		results = r.db.SendBatch(ctx, batch)
	}
	defer results.Close()

	for range termins {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert termin: %w", err)
		}
	}
	return nil
}

func (r *TerminRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Termin, error) {
	query := `
		SELECT project_id, termin_index, value, due_at, active
		FROM termins
		WHERE project_id = $1
		ORDER BY termin_index ASC
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query termins: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Termin, error) {
		var m TerminModel
		err := row.Scan(&m.ProjectID, &m.Index, &m.Value, &m.DueAt, &m.Active)
		return toDomainTermin(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan termins: %w", err)
	}
	return results, nil
}

// SetActive moves the active flag to the given termin index. Clearing and
// setting happen in one statement so there is never more than one active
// termin per project.
func (r *TerminRepository) SetActive(ctx context.Context, tx pgx.Tx, projectID string, index int) error {
	query := `
		UPDATE termins
		SET active = (termin_index = $2)
		WHERE project_id = $1
	`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	result, err := q.Exec(ctx, query, projectID, index)
	if err != nil {
		return fmt.Errorf("failed to set active termin: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewProjectNotFoundError(projectID)
	}
	return nil
}
