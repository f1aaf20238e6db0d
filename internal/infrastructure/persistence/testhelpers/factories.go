package testhelpers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/projevo/escrow-service/internal/domain"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence/postgres"
)

// SeedProject inserts a project with its termin schedule and returns both.
func SeedProject(
	t *testing.T,
	ctx context.Context,
	projects *postgres.ProjectRepository,
	termins *postgres.TerminRepository,
	total domain.Money,
	installments int,
) (*domain.Project, []domain.Termin) {
	project, err := domain.NewProject("proj-"+uuid.New().String(), "owner-"+uuid.New().String(), total)
	require.NoError(t, err)
	project.Installments = installments

	schedule, err := domain.ScheduleTermins(project.ID, total, installments)
	require.NoError(t, err)

	require.NoError(t, projects.Create(ctx, nil, project))
	require.NoError(t, termins.CreateBatch(ctx, nil, schedule))

	return project, schedule
}

// SeedPayment inserts a payment for the given termin and returns it.
func SeedPayment(
	t *testing.T,
	ctx context.Context,
	payments *postgres.PaymentRepository,
	projectID string,
	terminIndex int,
	base domain.Money,
) *domain.Payment {
	payment, err := domain.NewPayment(
		"pay-"+uuid.New().String(),
		projectID,
		terminIndex,
		"PJV-"+uuid.New().String(),
		base,
		base*11/100,
		base*25/1000,
	)
	require.NoError(t, err)

	require.NoError(t, payments.Create(ctx, nil, payment))
	return payment
}
