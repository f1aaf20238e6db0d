package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// PaymentResponse is the wire shape of a payment. Amounts are whole rupiah.
type PaymentResponse struct {
	ID               string  `json:"id"`
	ProjectID        string  `json:"project_id"`
	TerminIndex      int     `json:"termin_index"`
	BaseAmount       int64   `json:"base_amount"`
	TaxAmount        int64   `json:"tax_amount"`
	ServiceFeeAmount int64   `json:"service_fee_amount"`
	Amount           int64   `json:"amount"`
	AmountFormatted  string  `json:"amount_formatted"`
	PendingAddFunds  int64   `json:"pending_add_funds,omitempty"`
	Status           string  `json:"status"`
	GatewayOrderID   string  `json:"gateway_order_id"`
	GatewayReference *string `json:"gateway_reference,omitempty"`
	AttemptCount     int     `json:"attempt_count"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		ProjectID:        p.ProjectID,
		TerminIndex:      p.TerminIndex,
		BaseAmount:       int64(p.BaseAmount),
		TaxAmount:        int64(p.TaxAmount),
		ServiceFeeAmount: int64(p.ServiceFeeAmount),
		Amount:           int64(p.Amount),
		AmountFormatted:  p.Amount.Format(),
		PendingAddFunds:  int64(p.PendingAddFunds),
		Status:           string(p.Status),
		GatewayOrderID:   p.GatewayOrderID,
		GatewayReference: p.GatewayReference,
		AttemptCount:     p.AttemptCount,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

func ToPaymentResponses(payments []*domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, ToPaymentResponse(p))
	}
	return out
}

type StatusChangeResponse struct {
	Status   string `json:"status"`
	Event    string `json:"event"`
	Actor    string `json:"actor"`
	Rejected bool   `json:"rejected"`
	At       string `json:"at"`
}

func ToStatusChangeResponses(history []domain.StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, 0, len(history))
	for _, c := range history {
		out = append(out, StatusChangeResponse{
			Status:   string(c.Status),
			Event:    string(c.Event),
			Actor:    c.Actor,
			Rejected: c.Rejected,
			At:       c.At.Format(time.RFC3339),
		})
	}
	return out
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data})
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	if statusCode >= 500 {
		logger.Error("request failed", "code", errorCode, "error", err)
	}

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    errorCode,
			Message: err.Error(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
