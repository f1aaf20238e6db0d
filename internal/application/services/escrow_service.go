// Package services wires the escrow state machine to its ports. Every
// state-machine transition commits through EscrowService.transition: one
// row lock, one history row, one ledger entry, one transaction.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// Actor names recorded in payment history.
const (
	ActorGateway    = "gateway:midtrans"
	ActorReconciler = "worker:reconciler"
)

type EscrowService struct {
	payments application.PaymentRepository
	ledger   application.LedgerRepository
	projects application.ProjectRepository
	termins  application.TerminRepository
	gateway  application.GatewayClient
	cache    application.ProjectionCache
	tx       application.TxRunner
	fees     FeeCalculator
	logger   *slog.Logger
}

func NewEscrowService(
	payments application.PaymentRepository,
	ledger application.LedgerRepository,
	projects application.ProjectRepository,
	termins application.TerminRepository,
	gateway application.GatewayClient,
	cache application.ProjectionCache,
	tx application.TxRunner,
	fees FeeCalculator,
	logger *slog.Logger,
) *EscrowService {
	return &EscrowService{
		payments: payments,
		ledger:   ledger,
		projects: projects,
		termins:  termins,
		gateway:  gateway,
		cache:    cache,
		tx:       tx,
		fees:     fees,
		logger:   logger,
	}
}

// transitionOpts carries event-specific inputs into the shared commit path.
type transitionOpts struct {
	addFunds   domain.Money
	gatewayRef string
}

// transition applies one event to one payment inside a single transaction.
// The row lock on the payment serializes concurrent writers; different
// payments proceed independently.
//
// Rejected attempts commit too: the history row with the rejected marker is
// part of the audit trail, so rejections are not rolled back.
func (s *EscrowService) transition(ctx context.Context, paymentID string, event domain.Event, actor string, opts transitionOpts) (*domain.Payment, error) {
	var payment *domain.Payment
	var businessErr error

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		// Termins settle strictly in order: entering escrow requires every
		// earlier termin to be settled or refunded.
		if next, ok := p.CanApply(event); ok && next == domain.StatusInEscrow && p.Status == domain.StatusProcess {
			if orderErr := s.checkTerminOrder(ctx, tx, p); orderErr != nil {
				rejected := domain.StatusChange{
					Status:   p.Status,
					Event:    event,
					Actor:    actor,
					Rejected: true,
					At:       now,
				}
				if histErr := s.payments.AppendHistory(ctx, tx, p.ID, rejected); histErr != nil {
					return histErr
				}
				payment = p
				businessErr = orderErr
				return nil
			}
		}

		if opts.gatewayRef != "" {
			p.RecordGatewayReference(opts.gatewayRef)
		}

		delta := p.PendingAddFunds

		var change *domain.StatusChange
		if event == domain.EventAddFundsRequested {
			change, err = p.RequestAddFunds(opts.addFunds, actor, now)
			if err != nil && change == nil {
				// invalid top-up amount, nothing was recorded
				return err
			}
		} else {
			change, err = p.Apply(event, actor, now)
		}

		if err != nil {
			if histErr := s.payments.AppendHistory(ctx, tx, p.ID, *change); histErr != nil {
				return histErr
			}
			payment = p
			businessErr = err
			return nil
		}

		entry, err := domain.EntryForTransition(p, event, delta, now)
		if err != nil {
			return err
		}
		entry.ID = uuid.New().String()

		if err := s.payments.AppendHistory(ctx, tx, p.ID, *change); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.payments.Update(ctx, tx, p); err != nil {
			return err
		}

		if p.ClearsTermin() {
			if err := s.activateNextTermin(ctx, tx, p); err != nil {
				return err
			}
		}

		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, payment.ProjectID)

	if businessErr != nil {
		return payment, businessErr
	}
	return payment, nil
}

// checkTerminOrder enforces the ordering invariant: every termin before
// this one must have a payment in settle or refund.
func (s *EscrowService) checkTerminOrder(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	for index := 1; index < p.TerminIndex; index++ {
		current, err := s.payments.FindCurrentByTermin(ctx, tx, p.ProjectID, index)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
				return domain.NewOutOfOrderTerminError(p.ProjectID, p.TerminIndex, index)
			}
			return err
		}
		if !current.ClearsTermin() {
			return domain.NewOutOfOrderTerminError(p.ProjectID, p.TerminIndex, index)
		}
	}
	return nil
}

// activateNextTermin moves the active flag and opens the next termin's
// payment once the current one settles or refunds.
func (s *EscrowService) activateNextTermin(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	termins, err := s.termins.ListByProject(ctx, p.ProjectID)
	if err != nil {
		return err
	}

	next := p.TerminIndex + 1
	var nextTermin *domain.Termin
	for i := range termins {
		if termins[i].Index == next {
			nextTermin = &termins[i]
			break
		}
	}
	if nextTermin == nil {
		return nil // last termin, project fully paid out
	}

	if err := s.termins.SetActive(ctx, tx, p.ProjectID, next); err != nil {
		return err
	}

	_, err = s.payments.FindCurrentByTermin(ctx, tx, p.ProjectID, next)
	if err == nil {
		return nil // payment already opened
	}
	if !domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
		return err
	}

	nextPayment, err := newPaymentForTermin(*nextTermin, s.fees)
	if err != nil {
		return err
	}
	return s.payments.Create(ctx, tx, nextPayment)
}

func (s *EscrowService) invalidateSummary(ctx context.Context, projectID string) {
	if err := s.cache.Invalidate(ctx, projectID); err != nil {
		s.logger.Error("summary cache invalidation failed",
			"project_id", projectID,
			"error", err,
		)
	}
}

// InitiatePayment moves the payment into process and opens a gateway
// charge session. If the gateway cannot be reached after the client's
// bounded retries, the payment is marked failed rather than left stuck.
func (s *EscrowService) InitiatePayment(ctx context.Context, paymentID, actor string) (*domain.Payment, *application.ChargeResponse, error) {
	payment, err := s.transition(ctx, paymentID, domain.EventInitiatePayment, actor, transitionOpts{})
	if err != nil {
		return payment, nil, err
	}

	if bumped, err := s.persistAttemptCount(ctx, payment.ID); err != nil {
		s.logger.Error("failed to persist attempt count", "payment_id", payment.ID, "error", err)
	} else {
		payment = bumped
	}

	charge, chargeErr := s.gateway.CreateCharge(ctx, application.ChargeRequest{
		OrderID:     payment.GatewayOrderID,
		GrossAmount: int64(payment.Amount),
		ItemName:    "Projevo termin " + payment.ID,
	})
	if chargeErr != nil {
		s.logger.Error("charge creation failed, marking payment failed",
			"payment_id", payment.ID,
			"attempts", payment.AttemptCount,
			"error", chargeErr,
		)
		failed, failErr := s.transition(ctx, paymentID, domain.EventChargeFailed, ActorGateway, transitionOpts{})
		if failErr != nil {
			return payment, nil, failErr
		}
		return failed, nil, domain.NewGatewayTimeoutError("charge", failed.AttemptCount, chargeErr)
	}

	return payment, charge, nil
}

func (s *EscrowService) persistAttemptCount(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var locked *domain.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		locked, err = s.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		locked.MarkAttempt()
		return s.payments.Update(ctx, tx, locked)
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// ApproveRelease is the owner/admin approving payout of escrowed funds.
func (s *EscrowService) ApproveRelease(ctx context.Context, paymentID, actor string) (*domain.Payment, error) {
	return s.transition(ctx, paymentID, domain.EventReleaseApproved, actor, transitionOpts{})
}

// OpenDispute parks the payment while the parties argue.
func (s *EscrowService) OpenDispute(ctx context.Context, paymentID, actor string) (*domain.Payment, error) {
	return s.transition(ctx, paymentID, domain.EventDisputeOpened, actor, transitionOpts{})
}

// ResolveDispute closes a dispute in favor of "client" (refund) or
// "vendor" (release resumes).
func (s *EscrowService) ResolveDispute(ctx context.Context, paymentID, outcome, actor string) (*domain.Payment, error) {
	var event domain.Event
	switch outcome {
	case "client":
		event = domain.EventDisputeRuledClient
	case "vendor":
		event = domain.EventDisputeRuledVendor
	default:
		return nil, application.NewInvalidInputError(errors.New("outcome must be client or vendor"))
	}
	return s.transition(ctx, paymentID, event, actor, transitionOpts{})
}

// RequestAddFunds records the vendor's top-up request on the current termin.
func (s *EscrowService) RequestAddFunds(ctx context.Context, paymentID string, extra domain.Money, actor string) (*domain.Payment, error) {
	return s.transition(ctx, paymentID, domain.EventAddFundsRequested, actor, transitionOpts{addFunds: extra})
}

// ResolveAddFunds approves or denies a pending top-up request. Approval
// raises the current termin's amount only; the project's total contract
// value is untouched.
func (s *EscrowService) ResolveAddFunds(ctx context.Context, paymentID string, approved bool, actor string) (*domain.Payment, error) {
	event := domain.EventAddFundsDenied
	if approved {
		event = domain.EventAddFundsApproved
	}
	return s.transition(ctx, paymentID, event, actor, transitionOpts{})
}

// ApplyGatewayEvent feeds a verified, deduplicated gateway notification
// into the state machine. Called by the webhook service and the reconciler.
func (s *EscrowService) ApplyGatewayEvent(ctx context.Context, paymentID string, event domain.Event, gatewayRef, actor string) (*domain.Payment, error) {
	return s.transition(ctx, paymentID, event, actor, transitionOpts{gatewayRef: gatewayRef})
}

// RetryFailedPayment opens a fresh payment row for a termin whose previous
// attempt failed. The failed row is never mutated; its history stays.
func (s *EscrowService) RetryFailedPayment(ctx context.Context, paymentID, actor string) (*domain.Payment, error) {
	var fresh *domain.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		failed, err := s.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if failed.Status != domain.StatusFailed {
			return domain.NewPaymentNotRetryableError(failed.ID, failed.Status)
		}

		termins, err := s.termins.ListByProject(ctx, failed.ProjectID)
		if err != nil {
			return err
		}
		var termin *domain.Termin
		for i := range termins {
			if termins[i].Index == failed.TerminIndex {
				termin = &termins[i]
				break
			}
		}
		if termin == nil {
			return domain.NewProjectNotFoundError(failed.ProjectID)
		}

		fresh, err = newPaymentForTermin(*termin, s.fees)
		if err != nil {
			return err
		}
		return s.payments.Create(ctx, tx, fresh)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, fresh.ProjectID)
	s.logger.Info("failed payment retried with a new row",
		"failed_payment_id", paymentID,
		"new_payment_id", fresh.ID,
	)
	return fresh, nil
}
