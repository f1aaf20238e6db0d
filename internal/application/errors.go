package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/projevo/escrow-service/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewNotFoundError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps domain and service errors onto HTTP status codes for
// the REST edge.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeInvalidTransition,
			domain.ErrCodeOutOfOrderTermin,
			domain.ErrCodeVendorAlreadySet,
			domain.ErrCodePaymentNotRetryable,
			domain.ErrCodeDuplicateEvent:
			return http.StatusConflict
		case domain.ErrCodeInvalidSignature:
			return http.StatusUnauthorized
		case domain.ErrCodeNegativeAmount,
			domain.ErrCodeInvalidRatio,
			domain.ErrCodeInvalidSchedule,
			domain.ErrCodeMissingRequiredField:
			return http.StatusBadRequest
		case domain.ErrCodePaymentNotFound, domain.ErrCodeProjectNotFound:
			return http.StatusNotFound
		case domain.ErrCodeGatewayTimeout:
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}

// ToErrorCode surfaces the machine-readable code for a response envelope.
func ToErrorCode(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	return ErrCodeInternal
}
