package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
	"github.com/projevo/escrow-service/internal/interfaces/rest"
)

type createProjectRequest struct {
	OwnerID    string `json:"owner_id" validate:"required"`
	TotalValue int64  `json:"total_value" validate:"required,gt=0"`
}

type projectResponse struct {
	ID                 string  `json:"id"`
	OwnerID            string  `json:"owner_id"`
	VendorID           *string `json:"vendor_id,omitempty"`
	TotalContractValue int64   `json:"total_contract_value"`
	Installments       int     `json:"installments,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	return projectResponse{
		ID:                 p.ID,
		OwnerID:            p.OwnerID,
		VendorID:           p.VendorID,
		TotalContractValue: int64(p.TotalContractValue),
		Installments:       p.Installments,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	project, err := h.scheduleService.CreateProject(r.Context(), req.OwnerID, domain.Money(req.TotalValue))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, toProjectResponse(project))
}

type selectVendorRequest struct {
	VendorID     string `json:"vendor_id" validate:"required"`
	Installments int    `json:"installments" validate:"required,min=1"`
}

type terminResponse struct {
	Index  int    `json:"index"`
	Value  int64  `json:"value"`
	Active bool   `json:"active"`
	DueAt  string `json:"due_at,omitempty"`
}

func (h *Handlers) HandleSelectVendor(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	var req selectVendorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	project, termins, err := h.scheduleService.SelectVendor(r.Context(), projectID, req.VendorID, req.Installments)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	terminResponses := make([]terminResponse, 0, len(termins))
	for _, t := range termins {
		tr := terminResponse{Index: t.Index, Value: int64(t.Value), Active: t.Active}
		if t.DueAt != nil {
			tr.DueAt = t.DueAt.Format(time.RFC3339)
		}
		terminResponses = append(terminResponses, tr)
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"project": toProjectResponse(project),
		"termins": terminResponses,
	})
}

func (h *Handlers) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	if err := h.scheduleService.DeleteProject(r.Context(), projectID); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	var status *domain.PaymentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.PaymentStatus(raw)
		status = &s
	}

	payments, err := h.queryService.ListPayments(r.Context(), projectID, status)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToPaymentResponses(payments))
}

func (h *Handlers) HandleProjectSummary(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	summary, err := h.queryService.Summarize(r.Context(), projectID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, summary)
}

// decodeAndValidate parses a JSON body and runs struct validation.
func (h *Handlers) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return application.NewInvalidInputError(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return application.NewInvalidInputError(err)
	}
	return nil
}
