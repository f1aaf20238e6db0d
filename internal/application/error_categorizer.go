package application

import (
	"context"
	"errors"

	"github.com/projevo/escrow-service/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategorySecurity       ErrorCategory = "SECURITY"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError decides how a failure is handled downstream: transient
// errors are retried with backoff, business-rule and security errors are
// surfaced immediately and never retried.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeGatewayTimeout:
			return CategoryTransient
		case domain.ErrCodeInvalidSignature:
			return CategorySecurity
		case domain.ErrCodeInvalidTransition,
			domain.ErrCodeOutOfOrderTermin,
			domain.ErrCodeVendorAlreadySet,
			domain.ErrCodePaymentNotRetryable,
			domain.ErrCodeLedgerMismatch,
			domain.ErrCodeDuplicateEvent:
			return CategoryBusinessRule
		case domain.ErrCodeNegativeAmount,
			domain.ErrCodeInvalidRatio,
			domain.ErrCodeInvalidSchedule,
			domain.ErrCodeMissingRequiredField,
			domain.ErrCodePaymentNotFound,
			domain.ErrCodeProjectNotFound:
			return CategoryClientError
		}
	}

	return CategoryInfrastructure
}

// IsRetryable reports whether the failure is worth another attempt.
func IsRetryable(err error) bool {
	return CategorizeError(err) == CategoryTransient
}
