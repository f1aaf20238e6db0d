package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// ScheduleService manages projects and their termin schedules.
type ScheduleService interface {
	CreateProject(ctx context.Context, ownerID string, totalValue domain.Money) (*domain.Project, error)
	SelectVendor(ctx context.Context, projectID, vendorID string, installments int) (*domain.Project, []domain.Termin, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// EscrowService drives payment state transitions on behalf of named actors.
type EscrowService interface {
	InitiatePayment(ctx context.Context, paymentID, actor string) (*domain.Payment, *application.ChargeResponse, error)
	ApproveRelease(ctx context.Context, paymentID, actor string) (*domain.Payment, error)
	OpenDispute(ctx context.Context, paymentID, actor string) (*domain.Payment, error)
	ResolveDispute(ctx context.Context, paymentID, outcome, actor string) (*domain.Payment, error)
	RequestAddFunds(ctx context.Context, paymentID string, extra domain.Money, actor string) (*domain.Payment, error)
	ResolveAddFunds(ctx context.Context, paymentID string, approved bool, actor string) (*domain.Payment, error)
	RetryFailedPayment(ctx context.Context, paymentID, actor string) (*domain.Payment, error)
}

// WebhookService records and applies gateway notifications.
type WebhookService interface {
	Ingest(ctx context.Context, event *application.WebhookEvent) error
}

// QueryService serves the read side.
type QueryService interface {
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListPayments(ctx context.Context, projectID string, status *domain.PaymentStatus) ([]*domain.Payment, error)
	PaymentHistory(ctx context.Context, paymentID string) ([]domain.StatusChange, error)
	Summarize(ctx context.Context, projectID string) (*application.ProjectSummary, error)
}

type Handlers struct {
	scheduleService ScheduleService
	escrowService   EscrowService
	webhookService  WebhookService
	queryService    QueryService
	serverKey       string
	validate        *validator.Validate
	logger          *slog.Logger
}

func NewHandlers(
	scheduleService ScheduleService,
	escrowService EscrowService,
	webhookService WebhookService,
	queryService QueryService,
	serverKey string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		scheduleService: scheduleService,
		escrowService:   escrowService,
		webhookService:  webhookService,
		queryService:    queryService,
		serverKey:       serverKey,
		validate:        validator.New(),
		logger:          logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /projects", h.HandleCreateProject)
	mux.HandleFunc("POST /projects/{id}/vendor", h.HandleSelectVendor)
	mux.HandleFunc("DELETE /projects/{id}", h.HandleDeleteProject)
	mux.HandleFunc("GET /projects/{id}/payments", h.HandleListPayments)
	mux.HandleFunc("GET /projects/{id}/summary", h.HandleProjectSummary)

	mux.HandleFunc("GET /payments/{id}", h.HandleGetPayment)
	mux.HandleFunc("GET /payments/{id}/history", h.HandlePaymentHistory)
	mux.HandleFunc("POST /payments/{id}/initiate", h.HandleInitiatePayment)
	mux.HandleFunc("POST /payments/{id}/release", h.HandleApproveRelease)
	mux.HandleFunc("POST /payments/{id}/dispute", h.HandleOpenDispute)
	mux.HandleFunc("POST /payments/{id}/dispute/resolve", h.HandleResolveDispute)
	mux.HandleFunc("POST /payments/{id}/add-funds", h.HandleRequestAddFunds)
	mux.HandleFunc("POST /payments/{id}/add-funds/resolve", h.HandleResolveAddFunds)
	mux.HandleFunc("POST /payments/{id}/retry", h.HandleRetryPayment)

	mux.HandleFunc("POST /webhooks/midtrans", h.HandleMidtransNotification)

	mux.HandleFunc("GET /health", h.HandleHealth)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
