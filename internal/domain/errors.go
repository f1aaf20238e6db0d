package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Domain error codes
const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeOutOfOrderTermin     = "OUT_OF_ORDER_TERMIN"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeNegativeAmount       = "NEGATIVE_AMOUNT"
	ErrCodeInvalidRatio         = "INVALID_RATIO"
	ErrCodeInvalidSchedule      = "INVALID_SCHEDULE"
	ErrCodeGatewayTimeout       = "GATEWAY_TIMEOUT"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeProjectNotFound      = "PROJECT_NOT_FOUND"
	ErrCodeVendorAlreadySet     = "VENDOR_ALREADY_SET"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodePaymentNotRetryable  = "PAYMENT_NOT_RETRYABLE"
	ErrCodeLedgerMismatch       = "LEDGER_MISMATCH"
	ErrCodeDuplicateEvent       = "DUPLICATE_EVENT"
)

func NewInvalidTransitionError(from PaymentStatus, event Event) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("event %s is not allowed while payment is %s", event, from),
	}
}

func NewOutOfOrderTerminError(projectID string, terminIndex, blockingIndex int) *DomainError {
	return &DomainError{
		Code: ErrCodeOutOfOrderTermin,
		Message: fmt.Sprintf(
			"termin %d of project %s cannot enter escrow while termin %d is unsettled",
			terminIndex, projectID, blockingIndex,
		),
	}
}

func NewInvalidSignatureError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidSignature,
		Message: fmt.Sprintf("webhook signature mismatch for order %s", orderID),
	}
}

func NewNegativeAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeNegativeAmount,
		Message: fmt.Sprintf("amount cannot be negative, got %d", amount),
	}
}

func NewInvalidRatioError(numerator, denominator int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidRatio,
		Message: fmt.Sprintf("invalid ratio %d/%d", numerator, denominator),
	}
}

func NewInvalidScheduleError(total Money, installments int) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidSchedule,
		Message: fmt.Sprintf("cannot schedule %s across %d installments", total.Format(), installments),
	}
}

func NewGatewayTimeoutError(operation string, attempts int, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeGatewayTimeout,
		Message: fmt.Sprintf("gateway %s failed after %d attempts", operation, attempts),
		Err:     err,
	}
}

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment with ID %s not found", id),
	}
}

func NewProjectNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeProjectNotFound,
		Message: fmt.Sprintf("project with ID %s not found", id),
	}
}

func NewVendorAlreadySetError(projectID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeVendorAlreadySet,
		Message: fmt.Sprintf("project %s already has a selected vendor", projectID),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewPaymentNotRetryableError(id string, status PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotRetryable,
		Message: fmt.Sprintf("payment %s is %s, only failed payments can be retried", id, status),
	}
}

func NewLedgerMismatchError(paymentID string, detail string) *DomainError {
	return &DomainError{
		Code:    ErrCodeLedgerMismatch,
		Message: fmt.Sprintf("ledger does not reconcile for payment %s: %s", paymentID, detail),
	}
}

func NewDuplicateEventError(reference string, event Event) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateEvent,
		Message: fmt.Sprintf("gateway event %s for reference %s was already applied", event, reference),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
