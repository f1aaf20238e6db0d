package postgres

import (
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// toDomainPayment: maps db model to domain entity
func toDomainPayment(m PaymentModel) *domain.Payment {
	return domain.Reconstitute(
		m.ID,
		m.ProjectID,
		m.TerminIndex,
		domain.Money(m.BaseAmount),
		domain.Money(m.TaxAmount),
		domain.Money(m.ServiceFeeAmount),
		domain.Money(m.Amount),
		domain.Money(m.PendingAddFunds),
		domain.PaymentStatus(m.Status),
		m.GatewayOrderID,
		m.GatewayReference,
		m.AttemptCount,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

// toPaymentModel: maps domain entity to db model
func toPaymentModel(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:               p.ID,
		ProjectID:        p.ProjectID,
		TerminIndex:      p.TerminIndex,
		BaseAmount:       int64(p.BaseAmount),
		TaxAmount:        int64(p.TaxAmount),
		ServiceFeeAmount: int64(p.ServiceFeeAmount),
		Amount:           int64(p.Amount),
		PendingAddFunds:  int64(p.PendingAddFunds),
		Status:           string(p.Status),
		GatewayOrderID:   p.GatewayOrderID,
		GatewayReference: p.GatewayReference,
		AttemptCount:     p.AttemptCount,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toDomainProject(m ProjectModel) *domain.Project {
	return &domain.Project{
		ID:                 m.ID,
		OwnerID:            m.OwnerID,
		VendorID:           m.VendorID,
		TotalContractValue: domain.Money(m.TotalContractValue),
		Installments:       m.Installments,
		CreatedAt:          m.CreatedAt,
		DeletedAt:          m.DeletedAt,
	}
}

func toDomainTermin(m TerminModel) domain.Termin {
	return domain.Termin{
		ProjectID: m.ProjectID,
		Index:     m.Index,
		Value:     domain.Money(m.Value),
		DueAt:     m.DueAt,
		Active:    m.Active,
	}
}

func toDomainLedgerEntry(m LedgerEntryModel) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:          m.ID,
		PaymentID:   m.PaymentID,
		ProjectID:   m.ProjectID,
		TerminIndex: m.TerminIndex,
		FromParty:   domain.Party(m.FromParty),
		ToParty:     domain.Party(m.ToParty),
		Amount:      domain.Money(m.Amount),
		Kind:        domain.LedgerKind(m.Kind),
		At:          m.CreatedAt,
	}
}

func toDomainStatusChange(m StatusChangeModel) domain.StatusChange {
	return domain.StatusChange{
		Status:   domain.PaymentStatus(m.Status),
		Event:    domain.Event(m.Event),
		Actor:    m.Actor,
		Rejected: m.Rejected,
		At:       m.At,
	}
}

func toDomainWebhookEvent(m WebhookEventModel) *application.WebhookEvent {
	return &application.WebhookEvent{
		ID:               m.ID,
		GatewayReference: m.GatewayReference,
		OrderID:          m.OrderID,
		Event:            domain.Event(m.Event),
		StatusCode:       m.StatusCode,
		GrossAmount:      m.GrossAmount,
		RawPayload:       m.RawPayload,
		Processed:        m.Processed,
		ReceivedAt:       m.ReceivedAt,
	}
}
