package services

import (
	"context"
	"log/slog"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// QueryService is the read side. It never mutates payments or the ledger;
// summaries may be served from cache, which the write side invalidates
// synchronously on every transition commit.
type QueryService struct {
	payments application.PaymentRepository
	ledger   application.LedgerRepository
	cache    application.ProjectionCache
	logger   *slog.Logger
}

func NewQueryService(
	payments application.PaymentRepository,
	ledger application.LedgerRepository,
	cache application.ProjectionCache,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		payments: payments,
		ledger:   ledger,
		cache:    cache,
		logger:   logger,
	}
}

func (s *QueryService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return s.payments.FindByID(ctx, paymentID)
}

// ListPayments returns a project's payments, optionally filtered by status.
func (s *QueryService) ListPayments(ctx context.Context, projectID string, status *domain.PaymentStatus) ([]*domain.Payment, error) {
	return s.payments.ListByProject(ctx, projectID, status)
}

// PaymentHistory returns the append-only status history of one payment,
// rejected attempts included.
func (s *QueryService) PaymentHistory(ctx context.Context, paymentID string) ([]domain.StatusChange, error) {
	if _, err := s.payments.FindByID(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.payments.LoadHistory(ctx, paymentID)
}

// Summarize rolls a project up into paid/pending/escrowed totals. Failed
// payments are counted separately so the UI can tell "failed after N
// attempts" apart from "still pending".
func (s *QueryService) Summarize(ctx context.Context, projectID string) (*application.ProjectSummary, error) {
	if cached, ok, err := s.cache.GetSummary(ctx, projectID); err != nil {
		s.logger.Error("summary cache read failed", "project_id", projectID, "error", err)
	} else if ok {
		return cached, nil
	}

	payments, err := s.payments.ListByProject(ctx, projectID, nil)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	summary := &application.ProjectSummary{ProjectID: projectID}
	for _, p := range payments {
		switch p.Status {
		case domain.StatusSettle:
			summary.TotalPaid = summary.TotalPaid.Add(p.Amount)
		case domain.StatusWaitingApproval, domain.StatusProcess:
			summary.TotalPending = summary.TotalPending.Add(p.Amount)
		case domain.StatusFailed:
			summary.FailedCount++
		}
	}

	balances := domain.PartyBalances(entries)
	summary.TotalEscrowed = balances[domain.PartyEscrow]

	if err := s.cache.SetSummary(ctx, projectID, summary); err != nil {
		s.logger.Error("summary cache write failed", "project_id", projectID, "error", err)
	}
	return summary, nil
}
