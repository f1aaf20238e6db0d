package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projevo/escrow-service/internal/domain"
)

func TestScheduleService_SelectVendorSchedulesTermins(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	project, err := env.schedule.CreateProject(ctx, "owner-1", 100_000_000)
	require.NoError(t, err)

	awarded, termins, err := env.schedule.SelectVendor(ctx, project.ID, "vendor-1", 3)
	require.NoError(t, err)
	require.NotNil(t, awarded.VendorID)
	assert.Equal(t, "vendor-1", *awarded.VendorID)
	assert.Equal(t, 3, awarded.Installments)

	require.Len(t, termins, 3)
	var total domain.Money
	for _, termin := range termins {
		total = total.Add(termin.Value)
	}
	assert.Equal(t, domain.Money(100_000_000), total)
	assert.True(t, termins[0].Active)
	assert.False(t, termins[1].Active)

	// the first termin's payment opens immediately, surcharges included
	first, err := env.payments.FindCurrentByTermin(ctx, nil, project.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingApproval, first.Status)
	assert.Equal(t, termins[0].Value, first.BaseAmount)
	assert.Equal(t, first.BaseAmount+first.TaxAmount+first.ServiceFeeAmount, first.Amount)

	// later termins wait their turn
	_, err = env.payments.FindCurrentByTermin(ctx, nil, project.ID, 2)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
}

func TestScheduleService_VendorSelectedOnlyOnce(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	project, err := env.schedule.CreateProject(ctx, "owner-1", 40_000_000)
	require.NoError(t, err)

	_, _, err = env.schedule.SelectVendor(ctx, project.ID, "vendor-1", 2)
	require.NoError(t, err)

	_, _, err = env.schedule.SelectVendor(ctx, project.ID, "vendor-2", 4)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeVendorAlreadySet))
}

func TestScheduleService_DeleteProjectIsSoft(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	projectID, first := setupProject(t, env, 20_000_000, 1)

	settleTermin(t, env, first.ID)

	require.NoError(t, env.schedule.DeleteProject(ctx, projectID))

	_, err := env.projects.FindByID(ctx, projectID)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeProjectNotFound))

	// the audit trail survives the delete
	entries, err := env.ledger.ListByProject(ctx, projectID)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	history, err := env.payments.LoadHistory(ctx, first.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func TestScheduleService_CreateProjectValidation(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	_, err := env.schedule.CreateProject(ctx, "", 10_000_000)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))

	_, err = env.schedule.CreateProject(ctx, "owner-1", 0)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeNegativeAmount))
}
