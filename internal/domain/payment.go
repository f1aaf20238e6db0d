// Package domain holds the escrow payment state machine and the value types
// it governs. Nothing in here touches the database or the gateway, callers
// in the application layer are responsible for persisting what the entities
// decide.
package domain

import (
	"time"
)

// PaymentStatus represents the current state of a termin payment in its
// escrow lifecycle.
type PaymentStatus string

const (
	// StatusWaitingApproval is the initial state: the termin is due but the
	// client has not started paying yet.
	StatusWaitingApproval PaymentStatus = "waiting-approval"
	// StatusProcess means a gateway charge session exists and the charge is
	// in flight.
	StatusProcess PaymentStatus = "process"
	// StatusInEscrow means the platform holds the captured funds.
	StatusInEscrow PaymentStatus = "inescrow"
	// StatusRelease means the owner approved paying the vendor and the
	// payout is in flight.
	StatusRelease PaymentStatus = "release"
	// StatusSettle is terminal: the vendor has the funds.
	StatusSettle PaymentStatus = "settle"
	// StatusRefund is terminal: the client got the funds back.
	StatusRefund PaymentStatus = "refund"
	// StatusInDispute parks the payment while a dispute is resolved.
	StatusInDispute PaymentStatus = "indispute"
	// StatusAddFunds parks the payment while a vendor top-up request is
	// pending a decision.
	StatusAddFunds PaymentStatus = "add-funds"
	// StatusFailed is terminal for this payment row. Retrying a failed
	// termin creates a new Payment, the failed row is kept for audit.
	StatusFailed PaymentStatus = "failed"
)

// AllStatuses lists every status, for exhaustive table tests.
func AllStatuses() []PaymentStatus {
	return []PaymentStatus{
		StatusWaitingApproval,
		StatusProcess,
		StatusInEscrow,
		StatusRelease,
		StatusSettle,
		StatusRefund,
		StatusInDispute,
		StatusAddFunds,
		StatusFailed,
	}
}

// transitions is the single authoritative transition table. Any (status,
// event) pair absent from it is rejected with InvalidTransitionError.
var transitions = map[PaymentStatus]map[Event]PaymentStatus{
	StatusWaitingApproval: {
		EventInitiatePayment: StatusProcess,
	},
	StatusProcess: {
		EventChargeCaptured: StatusInEscrow,
		EventChargeFailed:   StatusFailed,
	},
	StatusInEscrow: {
		EventReleaseApproved:   StatusRelease,
		EventDisputeOpened:     StatusInDispute,
		EventAddFundsRequested: StatusAddFunds,
	},
	StatusRelease: {
		EventTransferSettled: StatusSettle,
		EventDisputeOpened:   StatusInDispute,
	},
	StatusInDispute: {
		EventDisputeRuledClient: StatusRefund,
		EventDisputeRuledVendor: StatusRelease,
	},
	StatusAddFunds: {
		EventAddFundsApproved: StatusInEscrow,
		EventAddFundsDenied:   StatusInEscrow,
	},
}

// StatusChange is one entry in a payment's append-only history. Rejected
// attempts are recorded too, with Rejected set and Status left at the
// status the payment had when the attempt was made.
type StatusChange struct {
	Status   PaymentStatus
	Event    Event
	Actor    string
	Rejected bool
	At       time.Time
}

// Payment is the mutable entity the state machine governs, one per termin
// attempt. It is owned exclusively by the escrow service; the query layer
// only reads it.
type Payment struct {
	ID          string
	ProjectID   string
	TerminIndex int

	BaseAmount       Money
	TaxAmount        Money
	ServiceFeeAmount Money
	// Amount is the full charge: base termin value plus tax and service-fee
	// surcharges, plus any approved add-funds top-up.
	Amount Money

	Status           PaymentStatus
	GatewayOrderID   string
	GatewayReference *string

	// PendingAddFunds holds the requested top-up while status is add-funds.
	PendingAddFunds Money

	AttemptCount int
	Version      int64

	CreatedAt time.Time
	UpdatedAt time.Time

	History []StatusChange
}

func NewPayment(id, projectID string, terminIndex int, orderID string, base, tax, serviceFee Money) (*Payment, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("payment ID")
	}
	if projectID == "" {
		return nil, NewMissingRequiredFieldError("project ID")
	}
	if terminIndex < 1 {
		return nil, NewMissingRequiredFieldError("termin index")
	}
	if orderID == "" {
		return nil, NewMissingRequiredFieldError("gateway order ID")
	}

	now := time.Now().UTC()
	return &Payment{
		ID:               id,
		ProjectID:        projectID,
		TerminIndex:      terminIndex,
		BaseAmount:       base,
		TaxAmount:        tax,
		ServiceFeeAmount: serviceFee,
		Amount:           base.Add(tax).Add(serviceFee),
		Status:           StatusWaitingApproval,
		GatewayOrderID:   orderID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CanApply reports where the given event would take the payment without
// mutating anything.
func (p *Payment) CanApply(event Event) (PaymentStatus, bool) {
	next, ok := transitions[p.Status][event]
	return next, ok
}

// Apply runs one event through the transition table. On success the status
// moves and a history entry is appended. On an illegal event the status is
// left unchanged, the attempt is still appended to History with the
// Rejected marker, and InvalidTransitionError is returned.
func (p *Payment) Apply(event Event, actor string, at time.Time) (*StatusChange, error) {
	next, ok := p.CanApply(event)
	if !ok {
		rejected := StatusChange{
			Status:   p.Status,
			Event:    event,
			Actor:    actor,
			Rejected: true,
			At:       at,
		}
		p.History = append(p.History, rejected)
		return &rejected, NewInvalidTransitionError(p.Status, event)
	}

	switch event {
	case EventAddFundsApproved:
		p.Amount = p.Amount.Add(p.PendingAddFunds)
		p.PendingAddFunds = 0
	case EventAddFundsDenied:
		p.PendingAddFunds = 0
	}

	p.Status = next
	p.UpdatedAt = at

	change := StatusChange{
		Status: next,
		Event:  event,
		Actor:  actor,
		At:     at,
	}
	p.History = append(p.History, change)
	return &change, nil
}

// RequestAddFunds applies the add-funds-requested event and parks the
// requested top-up until it is approved or denied.
func (p *Payment) RequestAddFunds(extra Money, actor string, at time.Time) (*StatusChange, error) {
	if extra <= 0 {
		return nil, NewNegativeAmountError(int64(extra))
	}
	change, err := p.Apply(EventAddFundsRequested, actor, at)
	if err != nil {
		return change, err
	}
	p.PendingAddFunds = extra
	return change, nil
}

// RecordGatewayReference stores the gateway's transaction reference once the
// first notification for this payment arrives.
func (p *Payment) RecordGatewayReference(ref string) {
	p.GatewayReference = &ref
}

// MarkAttempt counts one outbound gateway attempt, so the query layer can
// report "failed after N attempts" distinctly from "still pending".
func (p *Payment) MarkAttempt() {
	p.AttemptCount++
}

// IsTerminal reports whether this payment row can never move again.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case StatusSettle, StatusRefund, StatusFailed:
		return true
	default:
		return false
	}
}

// ClearsTermin reports whether this payment unblocks the next termin.
// Only settle and refund do; a failed payment blocks the sequence until it
// is retried with a fresh payment row.
func (p *Payment) ClearsTermin() bool {
	return p.Status == StatusSettle || p.Status == StatusRefund
}

// Reconstitute - special constructor for loading from the database.
func Reconstitute(
	id, projectID string, terminIndex int,
	base, tax, serviceFee, amount, pendingAddFunds Money,
	status PaymentStatus,
	gatewayOrderID string, gatewayReference *string,
	attemptCount int, version int64,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		ID:               id,
		ProjectID:        projectID,
		TerminIndex:      terminIndex,
		BaseAmount:       base,
		TaxAmount:        tax,
		ServiceFeeAmount: serviceFee,
		Amount:           amount,
		PendingAddFunds:  pendingAddFunds,
		Status:           status,
		GatewayOrderID:   gatewayOrderID,
		GatewayReference: gatewayReference,
		AttemptCount:     attemptCount,
		Version:          version,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}
