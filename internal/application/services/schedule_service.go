package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// ScheduleService owns the project lifecycle around the state machine:
// creating projects, splitting the contract value into termins when a
// vendor is selected, and cascading soft-deletes.
type ScheduleService struct {
	projects application.ProjectRepository
	termins  application.TerminRepository
	payments application.PaymentRepository
	cache    application.ProjectionCache
	tx       application.TxRunner
	fees     FeeCalculator
	logger   *slog.Logger
}

func NewScheduleService(
	projects application.ProjectRepository,
	termins application.TerminRepository,
	payments application.PaymentRepository,
	cache application.ProjectionCache,
	tx application.TxRunner,
	fees FeeCalculator,
	logger *slog.Logger,
) *ScheduleService {
	return &ScheduleService{
		projects: projects,
		termins:  termins,
		payments: payments,
		cache:    cache,
		tx:       tx,
		fees:     fees,
		logger:   logger,
	}
}

func (s *ScheduleService) CreateProject(ctx context.Context, ownerID string, totalValue domain.Money) (*domain.Project, error) {
	project, err := domain.NewProject(uuid.New().String(), ownerID, totalValue)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.projects.Create(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// SelectVendor awards the project, splits the contract value into termins
// and opens the first termin's payment, all in one transaction.
func (s *ScheduleService) SelectVendor(ctx context.Context, projectID, vendorID string, installments int) (*domain.Project, []domain.Termin, error) {
	var project *domain.Project
	var termins []domain.Termin

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		project, err = s.projects.FindByIDForUpdate(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if project.IsDeleted() {
			return domain.NewProjectNotFoundError(projectID)
		}

		if err := project.SelectVendor(vendorID, installments); err != nil {
			return err
		}

		termins, err = domain.ScheduleTermins(projectID, project.TotalContractValue, installments)
		if err != nil {
			return err
		}

		if err := s.termins.CreateBatch(ctx, tx, termins); err != nil {
			return err
		}

		first, err := newPaymentForTermin(termins[0], s.fees)
		if err != nil {
			return err
		}
		if err := s.payments.Create(ctx, tx, first); err != nil {
			return err
		}

		return s.projects.Update(ctx, tx, project)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("vendor selected, termins scheduled",
		"project_id", projectID,
		"vendor_id", vendorID,
		"installments", installments,
		"total", project.TotalContractValue.Format(),
	)
	return project, termins, nil
}

// DeleteProject soft-deletes the project and archives its payments.
// Ledger entries are immutable and survive the cascade.
func (s *ScheduleService) DeleteProject(ctx context.Context, projectID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		project, err := s.projects.FindByIDForUpdate(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if project.IsDeleted() {
			return nil
		}
		return s.projects.SoftDelete(ctx, tx, projectID, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	if cacheErr := s.cache.Invalidate(ctx, projectID); cacheErr != nil {
		s.logger.Error("summary cache invalidation failed", "project_id", projectID, "error", cacheErr)
	}
	return nil
}
