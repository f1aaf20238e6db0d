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

const projectColumns = `id, owner_id, vendor_id, total_contract_value, installments, created_at, deleted_at`

type ProjectRepository struct {
	db *pgxpool.Pool
}

func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, tx pgx.Tx, project *domain.Project) error {
	query := `
		INSERT INTO projects (id, owner_id, vendor_id, total_contract_value, installments, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	_, err := q.Exec(ctx, query,
		project.ID,
		project.OwnerID,
		project.VendorID,
		int64(project.TotalContractValue),
		project.Installments,
		project.CreatedAt,
		project.DeletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRow(ctx, query, id)
	return scanProject(row, id)
}

func (r *ProjectRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	var q interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	} = r.db
	if tx != nil {
		q = tx
	}

	row := q.QueryRow(ctx, query, id)
	return scanProject(row, id)
}

func (r *ProjectRepository) Update(ctx context.Context, tx pgx.Tx, project *domain.Project) error {
	query := `
		UPDATE projects
		SET vendor_id = $1, total_contract_value = $2, installments = $3
		WHERE id = $4 AND deleted_at IS NULL
	`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	result, err := q.Exec(ctx, query,
		project.VendorID,
		int64(project.TotalContractValue),
		project.Installments,
		project.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewProjectNotFoundError(project.ID)
	}
	return nil
}

// SoftDelete archives the project. Payment and ledger rows stay; the
// audit trail outlives the project.
func (r *ProjectRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	query := `UPDATE projects SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	var q interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.db
	if tx != nil {
		q = tx
	}
	result, err := q.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewProjectNotFoundError(id)
	}
	return nil
}

func scanProject(row pgx.Row, id string) (*domain.Project, error) {
	var m ProjectModel
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.VendorID, &m.TotalContractValue,
		&m.Installments, &m.CreatedAt, &m.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewProjectNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return toDomainProject(m), nil
}
