package domain

import (
	"fmt"
	"time"
)

// LedgerKind classifies a monetary movement.
type LedgerKind string

const (
	KindCharge     LedgerKind = "charge"
	KindEscrowHold LedgerKind = "escrow-hold"
	KindRelease    LedgerKind = "release"
	KindRefund     LedgerKind = "refund"
	KindFee        LedgerKind = "fee"
)

// Party names an account funds move between. The escrow party is the
// platform's holding account; the platform party is where earned service
// fees end up after the sweep.
type Party string

const (
	PartyClient   Party = "client"
	PartyGateway  Party = "gateway"
	PartyEscrow   Party = "escrow"
	PartyVendor   Party = "vendor"
	PartyPlatform Party = "platform"
)

// LedgerEntry is an immutable record of a single monetary movement.
// Entries are append-only: they are never updated or deleted, a wrong entry
// is corrected by writing a compensating one.
type LedgerEntry struct {
	ID          string
	PaymentID   string
	ProjectID   string
	TerminIndex int
	FromParty   Party
	ToParty     Party
	Amount      Money
	Kind        LedgerKind
	At          time.Time
}

// EntryForTransition derives the single ledger entry an accepted transition
// appends. Transitions that move no money (dispute opening, release
// approval, add-funds bookkeeping) still append a zero-amount marker entry
// so the ledger replays to the full lifecycle.
//
// addFundsDelta is only consulted for the add-funds-approved event; pass the
// pending top-up captured before Payment.Apply folded it into Amount.
func EntryForTransition(p *Payment, event Event, addFundsDelta Money, at time.Time) (*LedgerEntry, error) {
	entry := &LedgerEntry{
		PaymentID:   p.ID,
		ProjectID:   p.ProjectID,
		TerminIndex: p.TerminIndex,
		At:          at,
	}

	switch event {
	case EventInitiatePayment:
		entry.FromParty, entry.ToParty = PartyClient, PartyGateway
		entry.Amount, entry.Kind = p.Amount, KindCharge
	case EventChargeCaptured:
		entry.FromParty, entry.ToParty = PartyGateway, PartyEscrow
		entry.Amount, entry.Kind = p.Amount, KindEscrowHold
	case EventChargeFailed:
		entry.FromParty, entry.ToParty = PartyGateway, PartyClient
		entry.Amount, entry.Kind = p.Amount, KindRefund
	case EventReleaseApproved, EventDisputeRuledVendor:
		entry.FromParty, entry.ToParty = PartyEscrow, PartyEscrow
		entry.Amount, entry.Kind = 0, KindRelease
	case EventTransferSettled:
		payout, err := p.Amount.Subtract(p.ServiceFeeAmount)
		if err != nil {
			return nil, err
		}
		entry.FromParty, entry.ToParty = PartyEscrow, PartyVendor
		entry.Amount, entry.Kind = payout, KindRelease
	case EventDisputeOpened, EventAddFundsRequested, EventAddFundsDenied:
		entry.FromParty, entry.ToParty = PartyEscrow, PartyEscrow
		entry.Amount, entry.Kind = 0, KindEscrowHold
	case EventDisputeRuledClient:
		entry.FromParty, entry.ToParty = PartyEscrow, PartyClient
		entry.Amount, entry.Kind = p.Amount, KindRefund
	case EventAddFundsApproved:
		entry.FromParty, entry.ToParty = PartyClient, PartyEscrow
		entry.Amount, entry.Kind = addFundsDelta, KindEscrowHold
	default:
		return nil, NewInvalidTransitionError(p.Status, event)
	}

	return entry, nil
}

// FeeSweepEntry moves the service fee retained at settlement out of the
// escrow account into the platform account. Written by the fee sweeper, not
// by a state transition.
func FeeSweepEntry(p *Payment, at time.Time) *LedgerEntry {
	return &LedgerEntry{
		PaymentID:   p.ID,
		ProjectID:   p.ProjectID,
		TerminIndex: p.TerminIndex,
		FromParty:   PartyEscrow,
		ToParty:     PartyPlatform,
		Amount:      p.ServiceFeeAmount,
		Kind:        KindFee,
		At:          at,
	}
}

// PartyBalances replays entries into a net position per party. The client
// is the external source of funds, so a fully refunded payment nets the
// client back to zero.
func PartyBalances(entries []LedgerEntry) map[Party]Money {
	balances := make(map[Party]Money)
	for _, e := range entries {
		balances[e.FromParty] -= e.Amount
		balances[e.ToParty] += e.Amount
	}
	return balances
}

// ReconcileLedger verifies that the ledger entries for a payment add up to
// the position its current status implies. A mismatch means an entry was
// lost, duplicated, or written out of band.
func ReconcileLedger(p *Payment, entries []LedgerEntry) error {
	bal := PartyBalances(entries)

	check := func(party Party, want Money) error {
		if got := bal[party]; got != want {
			return NewLedgerMismatchError(p.ID, fmt.Sprintf(
				"%s holds %s, expected %s in status %s",
				party, got.Format(), want.Format(), p.Status,
			))
		}
		return nil
	}

	switch p.Status {
	case StatusWaitingApproval:
		if len(entries) != 0 {
			return NewLedgerMismatchError(p.ID, "entries exist before any transition")
		}
		return nil
	case StatusProcess:
		return check(PartyGateway, p.Amount)
	case StatusInEscrow, StatusAddFunds, StatusInDispute, StatusRelease:
		if err := check(PartyEscrow, p.Amount); err != nil {
			return err
		}
		return check(PartyVendor, 0)
	case StatusSettle:
		payout, err := p.Amount.Subtract(p.ServiceFeeAmount)
		if err != nil {
			return err
		}
		if err := check(PartyVendor, payout); err != nil {
			return err
		}
		// Before the fee sweep the service fee sits in escrow; after it,
		// in the platform account. Either is consistent.
		if got := bal[PartyEscrow] + bal[PartyPlatform]; got != p.ServiceFeeAmount {
			return NewLedgerMismatchError(p.ID, fmt.Sprintf(
				"retained fee is %s, expected %s", got.Format(), p.ServiceFeeAmount.Format(),
			))
		}
		return nil
	case StatusRefund, StatusFailed:
		if err := check(PartyClient, 0); err != nil {
			return err
		}
		return check(PartyEscrow, 0)
	}

	return NewLedgerMismatchError(p.ID, fmt.Sprintf("unknown status %s", p.Status))
}
