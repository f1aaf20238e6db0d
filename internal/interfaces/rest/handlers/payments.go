package handlers

import (
	"net/http"

	"github.com/projevo/escrow-service/internal/domain"
	"github.com/projevo/escrow-service/internal/interfaces/rest"
)

type actorRequest struct {
	Actor string `json:"actor" validate:"required"`
}

func (h *Handlers) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.queryService.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponse(payment))
}

func (h *Handlers) HandlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.queryService.PaymentHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToStatusChangeResponses(history))
}

// HandleInitiatePayment moves a payment out of waiting-approval and opens a
// charge session at the gateway. The session redirect URL comes back to the
// caller so the client can complete payment.
func (h *Handlers) HandleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, charge, err := h.escrowService.InitiatePayment(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"payment":       rest.ToPaymentResponse(payment),
		"session_token": charge.SessionToken,
		"redirect_url":  charge.RedirectURL,
	})
}

func (h *Handlers) HandleApproveRelease(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, err := h.escrowService.ApproveRelease(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponse(payment))
}

func (h *Handlers) HandleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, err := h.escrowService.OpenDispute(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponse(payment))
}

type resolveDisputeRequest struct {
	Actor   string `json:"actor" validate:"required"`
	Outcome string `json:"outcome" validate:"required,oneof=client vendor"`
}

func (h *Handlers) HandleResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req resolveDisputeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, err := h.escrowService.ResolveDispute(r.Context(), r.PathValue("id"), req.Outcome, req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponse(payment))
}

type requestAddFundsRequest struct {
	Actor  string `json:"actor" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

func (h *Handlers) HandleRequestAddFunds(w http.ResponseWriter, r *http.Request) {
	var req requestAddFundsRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, err := h.escrowService.RequestAddFunds(r.Context(), r.PathValue("id"), domain.Money(req.Amount), req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponse(payment))
}

type resolveAddFundsRequest struct {
	Actor    string `json:"actor" validate:"required"`
	Approved *bool  `json:"approved" validate:"required"`
}

func (h *Handlers) HandleResolveAddFunds(w http.ResponseWriter, r *http.Request) {
	var req resolveAddFundsRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, err := h.escrowService.ResolveAddFunds(r.Context(), r.PathValue("id"), *req.Approved, req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponse(payment))
}

// HandleRetryPayment opens a fresh payment row for a failed payment's
// termin. The failed row stays behind for the audit trail.
func (h *Handlers) HandleRetryPayment(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	payment, err := h.escrowService.RetryFailedPayment(r.Context(), r.PathValue("id"), req.Actor)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.ToPaymentResponse(payment))
}
