package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// passthroughTxRunner runs the function directly. The in-memory fakes
// ignore the tx handle, so transaction boundaries collapse to plain calls.
type passthroughTxRunner struct{}

func (passthroughTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// MockPaymentRepository
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	history  map[string][]domain.StatusChange
	seq      int

	CreateFn func(ctx context.Context, payment *domain.Payment) error
	UpdateFn func(ctx context.Context, payment *domain.Payment) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
		history:  make(map[string][]domain.StatusChange),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, payment)
	}
	m.seq++
	// monotonic timestamps so "most recent row" ordering is stable even
	// when rows are created within the same nanosecond
	payment.CreatedAt = payment.CreatedAt.Add(time.Duration(m.seq) * time.Microsecond)
	m.payments[payment.ID] = payment
	return nil
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return p, nil
	}
	return nil, domain.NewPaymentNotFoundError(id)
}

func (m *MockPaymentRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Payment, error) {
	return m.FindByID(ctx, id)
}

func (m *MockPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.GatewayOrderID == orderID {
			return p, nil
		}
	}
	return nil, domain.NewPaymentNotFoundError(orderID)
}

func (m *MockPaymentRepository) FindCurrentByTermin(ctx context.Context, tx pgx.Tx, projectID string, terminIndex int) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Payment
	for _, p := range m.payments {
		if p.ProjectID != projectID || p.TerminIndex != terminIndex {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.NewPaymentNotFoundError(projectID)
	}
	return latest, nil
}

func (m *MockPaymentRepository) ListByProject(ctx context.Context, projectID string, status *domain.PaymentStatus) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.ProjectID != projectID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TerminIndex != out[j].TerminIndex {
			return out[i].TerminIndex < out[j].TerminIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockPaymentRepository) FindStuckInProcess(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.StatusProcess && p.UpdatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, payment)
	}
	if _, ok := m.payments[payment.ID]; !ok {
		return domain.NewPaymentNotFoundError(payment.ID)
	}
	payment.Version++
	m.payments[payment.ID] = payment
	return nil
}

func (m *MockPaymentRepository) AppendHistory(ctx context.Context, tx pgx.Tx, paymentID string, change domain.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[paymentID] = append(m.history[paymentID], change)
	return nil
}

func (m *MockPaymentRepository) LoadHistory(ctx context.Context, paymentID string) ([]domain.StatusChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.StatusChange(nil), m.history[paymentID]...), nil
}

// MockLedgerRepository
type MockLedgerRepository struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry

	Unswept []*domain.Payment
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MockLedgerRepository) ListByPayment(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockLedgerRepository) ListByProject(ctx context.Context, projectID string) ([]domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockLedgerRepository) ListUnsweptSettled(ctx context.Context, limit int) ([]*domain.Payment, error) {
	if len(m.Unswept) > limit {
		return m.Unswept[:limit], nil
	}
	return m.Unswept, nil
}

// MockProjectRepository
type MockProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{projects: make(map[string]*domain.Project)}
}

func (m *MockProjectRepository) Create(ctx context.Context, tx pgx.Tx, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = project
	return nil
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.projects[id]; ok && !p.IsDeleted() {
		return p, nil
	}
	return nil, domain.NewProjectNotFoundError(id)
}

func (m *MockProjectRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Project, error) {
	return m.FindByID(ctx, id)
}

func (m *MockProjectRepository) Update(ctx context.Context, tx pgx.Tx, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return domain.NewProjectNotFoundError(project.ID)
	}
	m.projects[project.ID] = project
	return nil
}

func (m *MockProjectRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.IsDeleted() {
		return domain.NewProjectNotFoundError(id)
	}
	p.DeletedAt = &at
	return nil
}

// MockTerminRepository
type MockTerminRepository struct {
	mu      sync.RWMutex
	termins map[string][]domain.Termin
}

func NewMockTerminRepository() *MockTerminRepository {
	return &MockTerminRepository{termins: make(map[string][]domain.Termin)}
}

func (m *MockTerminRepository) CreateBatch(ctx context.Context, tx pgx.Tx, termins []domain.Termin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range termins {
		m.termins[t.ProjectID] = append(m.termins[t.ProjectID], t)
	}
	return nil
}

func (m *MockTerminRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Termin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Termin(nil), m.termins[projectID]...), nil
}

func (m *MockTerminRepository) SetActive(ctx context.Context, tx pgx.Tx, projectID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.termins[projectID]
	for i := range list {
		list[i].Active = list[i].Index == index
	}
	return nil
}

// MockWebhookLogRepository
type MockWebhookLogRepository struct {
	mu     sync.RWMutex
	events map[string]*application.WebhookEvent
	seen   map[string]bool
}

func NewMockWebhookLogRepository() *MockWebhookLogRepository {
	return &MockWebhookLogRepository{
		events: make(map[string]*application.WebhookEvent),
		seen:   make(map[string]bool),
	}
}

func (m *MockWebhookLogRepository) Record(ctx context.Context, tx pgx.Tx, event *application.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := event.GatewayReference + "|" + string(event.Event)
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	m.events[event.ID] = event
	return true, nil
}

func (m *MockWebhookLogRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		e.Processed = true
	}
	return nil
}

func (m *MockWebhookLogRepository) ListUnprocessed(ctx context.Context, limit int) ([]*application.WebhookEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*application.WebhookEvent
	for _, e := range m.events {
		if !e.Processed {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockProjectionCache
type MockProjectionCache struct {
	mu            sync.RWMutex
	summaries     map[string]*application.ProjectSummary
	Invalidations int
}

func NewMockProjectionCache() *MockProjectionCache {
	return &MockProjectionCache{summaries: make(map[string]*application.ProjectSummary)}
}

func (m *MockProjectionCache) GetSummary(ctx context.Context, projectID string) (*application.ProjectSummary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[projectID]
	return s, ok, nil
}

func (m *MockProjectionCache) SetSummary(ctx context.Context, projectID string, summary *application.ProjectSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[projectID] = summary
	return nil
}

func (m *MockProjectionCache) Invalidate(ctx context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, projectID)
	m.Invalidations++
	return nil
}

// MockGatewayClient
type MockGatewayClient struct {
	mu          sync.Mutex
	ChargeCalls int

	CreateChargeFn         func(ctx context.Context, req application.ChargeRequest) (*application.ChargeResponse, error)
	GetTransactionStatusFn func(ctx context.Context, orderID string) (*application.TransactionStatus, error)
}

func (m *MockGatewayClient) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ChargeResponse, error) {
	m.mu.Lock()
	m.ChargeCalls++
	m.mu.Unlock()
	if m.CreateChargeFn != nil {
		return m.CreateChargeFn(ctx, req)
	}
	return &application.ChargeResponse{
		SessionToken: "snap-token",
		RedirectURL:  "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token",
		OrderID:      req.OrderID,
	}, nil
}

func (m *MockGatewayClient) GetTransactionStatus(ctx context.Context, orderID string) (*application.TransactionStatus, error) {
	if m.GetTransactionStatusFn != nil {
		return m.GetTransactionStatusFn(ctx, orderID)
	}
	return &application.TransactionStatus{OrderID: orderID, Status: "pending"}, nil
}
