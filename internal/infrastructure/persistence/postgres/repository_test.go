package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence/postgres"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence/testhelpers"
)

type RepositoryTestSuite struct {
	suite.Suite
	testDB      *testhelpers.TestDatabase
	projectRepo *postgres.ProjectRepository
	terminRepo  *postgres.TerminRepository
	paymentRepo *postgres.PaymentRepository
	ledgerRepo  *postgres.LedgerRepository
	webhookRepo *postgres.WebhookLogRepository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (suite *RepositoryTestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
	suite.projectRepo = postgres.NewProjectRepository(suite.testDB.DB.Pool)
	suite.terminRepo = postgres.NewTerminRepository(suite.testDB.DB.Pool)
	suite.paymentRepo = postgres.NewPaymentRepository(suite.testDB.DB.Pool)
	suite.ledgerRepo = postgres.NewLedgerRepository(suite.testDB.DB.Pool)
	suite.webhookRepo = postgres.NewWebhookLogRepository(suite.testDB.DB.Pool)
}

func (suite *RepositoryTestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

func (suite *RepositoryTestSuite) TearDownTest() {
	suite.testDB.CleanTables(suite.T())
}

func (suite *RepositoryTestSuite) Test_Payment_CreateAndFindRoundtrip() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	found, err := suite.paymentRepo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)
	assert.Equal(t, domain.StatusWaitingApproval, found.Status)
	assert.Equal(t, payment.Amount, found.Amount)
	assert.Equal(t, int64(0), found.Version)

	byOrder, err := suite.paymentRepo.FindByOrderID(ctx, payment.GatewayOrderID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byOrder.ID)
}

func (suite *RepositoryTestSuite) Test_Payment_FindByID_NotFound() {
	ctx := context.Background()
	t := suite.T()

	_, err := suite.paymentRepo.FindByID(ctx, "pay-missing")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
}

func (suite *RepositoryTestSuite) Test_Payment_Update_BumpsVersion() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	payment.Status = domain.StatusProcess
	require.NoError(t, suite.paymentRepo.Update(ctx, nil, payment))
	assert.Equal(t, int64(1), payment.Version)

	found, err := suite.paymentRepo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcess, found.Status)
	assert.Equal(t, int64(1), found.Version)
}

func (suite *RepositoryTestSuite) Test_Payment_Update_StaleVersionRejected() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	stale, err := suite.paymentRepo.FindByID(ctx, payment.ID)
	require.NoError(t, err)

	payment.Status = domain.StatusProcess
	require.NoError(t, suite.paymentRepo.Update(ctx, nil, payment))

	stale.Status = domain.StatusFailed
	err = suite.paymentRepo.Update(ctx, nil, stale)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
}

func (suite *RepositoryTestSuite) Test_Payment_OneLivePaymentPerTermin() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	second, err := domain.NewPayment("pay-dup", project.ID, 1, "PJV-dup", 10_000_000, 0, 0)
	require.NoError(t, err)

	err = suite.paymentRepo.Create(ctx, nil, second)
	require.Error(t, err)
	assert.True(t, persistence.IsUniqueViolation(err))

	// a failed payment no longer blocks the termin
	payment.Status = domain.StatusFailed
	require.NoError(t, suite.paymentRepo.Update(ctx, nil, payment))
	require.NoError(t, suite.paymentRepo.Create(ctx, nil, second))
}

func (suite *RepositoryTestSuite) Test_Payment_FindCurrentByTermin_PrefersNewestRow() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	first := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	first.Status = domain.StatusFailed
	require.NoError(t, suite.paymentRepo.Update(ctx, nil, first))

	retry, err := domain.NewPayment("pay-retry", project.ID, 1, "PJV-retry", 10_000_000, 0, 0)
	require.NoError(t, err)
	require.NoError(t, suite.paymentRepo.Create(ctx, nil, retry))

	current, err := suite.paymentRepo.FindCurrentByTermin(ctx, nil, project.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "pay-retry", current.ID)
}

func (suite *RepositoryTestSuite) Test_Payment_HistoryPreservesOrderAndRejections() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	base := time.Now().UTC().Truncate(time.Microsecond)
	changes := []domain.StatusChange{
		{Status: domain.StatusProcess, Event: domain.EventInitiatePayment, Actor: "client", At: base},
		{Status: domain.StatusProcess, Event: domain.EventReleaseApproved, Actor: "client", Rejected: true, At: base.Add(time.Second)},
		{Status: domain.StatusInEscrow, Event: domain.EventChargeCaptured, Actor: "gateway", At: base.Add(2 * time.Second)},
	}
	for _, change := range changes {
		require.NoError(t, suite.paymentRepo.AppendHistory(ctx, nil, payment.ID, change))
	}

	history, err := suite.paymentRepo.LoadHistory(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.EventInitiatePayment, history[0].Event)
	assert.True(t, history[1].Rejected)
	assert.Equal(t, domain.StatusInEscrow, history[2].Status)
}

func (suite *RepositoryTestSuite) Test_Payment_FindStuckInProcess() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	payment.Status = domain.StatusProcess
	require.NoError(t, suite.paymentRepo.Update(ctx, nil, payment))

	// updated just now, not yet past the cutoff
	stuck, err := suite.paymentRepo.FindStuckInProcess(ctx, time.Now().UTC().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, stuck)

	stuck, err = suite.paymentRepo.FindStuckInProcess(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, payment.ID, stuck[0].ID)
}

func (suite *RepositoryTestSuite) Test_Ledger_AppendAndList() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	entry := &domain.LedgerEntry{
		ID:          uuid.New().String(),
		PaymentID:   payment.ID,
		ProjectID:   project.ID,
		TerminIndex: 1,
		FromParty:   domain.PartyClient,
		ToParty:     domain.PartyGateway,
		Amount:      payment.Amount,
		Kind:        domain.KindCharge,
		At:          time.Now().UTC(),
	}
	require.NoError(t, suite.ledgerRepo.Append(ctx, nil, entry))

	byPayment, err := suite.ledgerRepo.ListByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, byPayment, 1)
	assert.Equal(t, domain.KindCharge, byPayment[0].Kind)
	assert.Equal(t, payment.Amount, byPayment[0].Amount)

	byProject, err := suite.ledgerRepo.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, byProject, 1)
}

func (suite *RepositoryTestSuite) Test_Ledger_UnsweptSettledUntilFeeEntryExists() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)

	payment.Status = domain.StatusSettle
	require.NoError(t, suite.paymentRepo.Update(ctx, nil, payment))

	unswept, err := suite.ledgerRepo.ListUnsweptSettled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unswept, 1)
	assert.Equal(t, payment.ID, unswept[0].ID)

	fee := domain.FeeSweepEntry(payment, time.Now().UTC())
	fee.ID = uuid.New().String()
	require.NoError(t, suite.ledgerRepo.Append(ctx, nil, fee))

	unswept, err = suite.ledgerRepo.ListUnsweptSettled(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unswept)
}

func (suite *RepositoryTestSuite) Test_Webhook_DuplicateDeliveryReturnsFalse() {
	ctx := context.Background()
	t := suite.T()

	event := &application.WebhookEvent{
		ID:               uuid.New().String(),
		GatewayReference: "tx-1",
		OrderID:          "PJV-1",
		Event:            domain.EventChargeCaptured,
		StatusCode:       "200",
		GrossAmount:      "11350000.00",
		ReceivedAt:       time.Now().UTC(),
	}

	inserted, err := suite.webhookRepo.Record(ctx, nil, event)
	require.NoError(t, err)
	assert.True(t, inserted)

	duplicate := *event
	duplicate.ID = uuid.New().String()
	inserted, err = suite.webhookRepo.Record(ctx, nil, &duplicate)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func (suite *RepositoryTestSuite) Test_Webhook_MarkProcessedDrainsQueue() {
	ctx := context.Background()
	t := suite.T()

	event := &application.WebhookEvent{
		ID:               uuid.New().String(),
		GatewayReference: "tx-1",
		OrderID:          "PJV-1",
		Event:            domain.EventChargeCaptured,
		StatusCode:       "200",
		GrossAmount:      "11350000.00",
		ReceivedAt:       time.Now().UTC(),
	}
	_, err := suite.webhookRepo.Record(ctx, nil, event)
	require.NoError(t, err)

	pending, err := suite.webhookRepo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, suite.webhookRepo.MarkProcessed(ctx, nil, event.ID))

	pending, err = suite.webhookRepo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func (suite *RepositoryTestSuite) Test_Termin_SetActiveKeepsSingleActive() {
	ctx := context.Background()
	t := suite.T()

	project, termins := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	require.True(t, termins[0].Active)

	require.NoError(t, suite.terminRepo.SetActive(ctx, nil, project.ID, 2))

	listed, err := suite.terminRepo.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.False(t, listed[0].Active)
	assert.True(t, listed[1].Active)
	assert.False(t, listed[2].Active)
}

func (suite *RepositoryTestSuite) Test_Project_SoftDeleteHidesProject() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)

	require.NoError(t, suite.projectRepo.SoftDelete(ctx, nil, project.ID, time.Now().UTC()))

	_, err := suite.projectRepo.FindByID(ctx, project.ID)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeProjectNotFound))
}

func (suite *RepositoryTestSuite) Test_Project_SoftDeleteCascadesToPaymentReads() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)
	payment := testhelpers.SeedPayment(t, ctx, suite.paymentRepo, project.ID, 1, 10_000_000)
	require.NoError(t, suite.paymentRepo.AppendHistory(ctx, nil, payment.ID, domain.StatusChange{
		Status: domain.StatusWaitingApproval,
		Event:  domain.EventInitiatePayment,
		Actor:  "client-1",
		At:     time.Now().UTC(),
	}))

	found, err := suite.paymentRepo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, payment.ID, found.ID)

	require.NoError(t, suite.projectRepo.SoftDelete(ctx, nil, project.ID, time.Now().UTC()))

	_, err = suite.paymentRepo.FindByID(ctx, payment.ID)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))

	listed, err := suite.paymentRepo.ListByProject(ctx, project.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// history stays behind for the audit trail
	history, err := suite.paymentRepo.LoadHistory(ctx, payment.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func (suite *RepositoryTestSuite) Test_WithinTx_RollsBackOnError() {
	ctx := context.Background()
	t := suite.T()

	project, _ := testhelpers.SeedProject(t, ctx, suite.projectRepo, suite.terminRepo, 30_000_000, 3)

	err := suite.testDB.DB.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		payment, err := domain.NewPayment("pay-tx", project.ID, 1, "PJV-tx", 10_000_000, 0, 0)
		require.NoError(t, err)
		if err := suite.paymentRepo.Create(ctx, tx, payment); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = suite.paymentRepo.FindByID(ctx, "pay-tx")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
}
