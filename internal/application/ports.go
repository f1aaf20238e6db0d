// Package application orchestrates the escrow domain against its ports: the
// payment gateway, the relational store, and the projection cache.
package application

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/projevo/escrow-service/internal/domain"
)

// GatewayClient is the port for the external payment gateway (Midtrans).
type GatewayClient interface {
	// CreateCharge opens a hosted payment session for the given order.
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
	// GetTransactionStatus polls the gateway for the current status of an
	// order, used by the reconciler to catch missed webhooks.
	GetTransactionStatus(ctx context.Context, orderID string) (*TransactionStatus, error)
}

type ChargeRequest struct {
	OrderID     string
	GrossAmount int64
	CustomerID  string
	ItemName    string
}

type ChargeResponse struct {
	SessionToken string
	RedirectURL  string
	OrderID      string
}

// TransactionStatus carries the gateway's own vocabulary; mapping onto
// domain events happens in the midtrans adapter, never here.
type TransactionStatus struct {
	OrderID       string
	TransactionID string
	Status        string
	StatusCode    string
	GrossAmount   string
}

// TxRunner runs a function inside a single database transaction. Every
// state-machine transition commits through exactly one of these.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// PaymentRepository is the port for payment persistence. Methods taking a
// pgx.Tx participate in the caller's transaction; a nil tx runs standalone.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	// FindByID and ListByProject skip payments of soft-deleted projects.
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	// FindByIDForUpdate locks the payment row, serializing concurrent
	// transitions on the same payment.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	// FindCurrentByTermin returns the most recent payment row for a termin.
	FindCurrentByTermin(ctx context.Context, tx pgx.Tx, projectID string, terminIndex int) (*domain.Payment, error)
	ListByProject(ctx context.Context, projectID string, status *domain.PaymentStatus) ([]*domain.Payment, error)
	// FindStuckInProcess lists payments sitting in process longer than the
	// cutoff, candidates for reconciliation against the gateway.
	FindStuckInProcess(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Payment, error)
	Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	AppendHistory(ctx context.Context, tx pgx.Tx, paymentID string, change domain.StatusChange) error
	LoadHistory(ctx context.Context, paymentID string) ([]domain.StatusChange, error)
}

// LedgerRepository is the port for the append-only ledger. There is no
// update or delete on purpose.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByPayment(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.LedgerEntry, error)
	// ListUnsweptSettled returns settled payments with a service fee still
	// sitting in the escrow account (no fee-kind entry yet).
	ListUnsweptSettled(ctx context.Context, limit int) ([]*domain.Payment, error)
}

type ProjectRepository interface {
	Create(ctx context.Context, tx pgx.Tx, project *domain.Project) error
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Project, error)
	Update(ctx context.Context, tx pgx.Tx, project *domain.Project) error
	// SoftDelete archives the project and cascades to its payments: project
	// and payment reads stop returning them. History and ledger entries stay
	// behind for the audit trail.
	SoftDelete(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
}

type TerminRepository interface {
	CreateBatch(ctx context.Context, tx pgx.Tx, termins []domain.Termin) error
	ListByProject(ctx context.Context, projectID string) ([]domain.Termin, error)
	// SetActive moves the active flag to the given termin index.
	SetActive(ctx context.Context, tx pgx.Tx, projectID string, index int) error
}

// WebhookEvent is one durably recorded gateway notification. The unique
// (gateway reference, event) pair is the idempotency key: replays insert
// nothing and apply nothing.
type WebhookEvent struct {
	ID               string
	GatewayReference string
	OrderID          string
	Event            domain.Event
	StatusCode       string
	GrossAmount      string
	RawPayload       []byte
	Processed        bool
	ReceivedAt       time.Time
}

type WebhookLogRepository interface {
	// Record inserts the event. Returns false when the same gateway
	// reference already delivered this event (duplicate webhook).
	Record(ctx context.Context, tx pgx.Tx, event *WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error
	ListUnprocessed(ctx context.Context, limit int) ([]*WebhookEvent, error)
}

// ProjectSummary is the read-side rollup served to dashboards.
type ProjectSummary struct {
	ProjectID     string       `json:"project_id"`
	TotalPaid     domain.Money `json:"total_paid"`
	TotalPending  domain.Money `json:"total_pending"`
	TotalEscrowed domain.Money `json:"total_escrowed"`
	FailedCount   int          `json:"failed_count"`
}

// ProjectionCache stores summaries between transitions. Invalidation is
// synchronous with every transition commit, so readers never see a summary
// staler than the latest commit.
type ProjectionCache interface {
	GetSummary(ctx context.Context, projectID string) (*ProjectSummary, bool, error)
	SetSummary(ctx context.Context, projectID string, summary *ProjectSummary) error
	Invalidate(ctx context.Context, projectID string) error
}
