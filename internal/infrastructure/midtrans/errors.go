package midtrans

import (
	"fmt"
	"strings"
)

// GatewayError is a non-2xx answer from Midtrans.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("midtrans returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func newGatewayError(httpStatus int, resp gatewayErrorResponse) *GatewayError {
	message := resp.StatusMessage
	if len(resp.ErrorMessages) > 0 {
		message = strings.Join(resp.ErrorMessages, "; ")
	}
	return &GatewayError{
		StatusCode: httpStatus,
		Code:       resp.StatusCode,
		Message:    message,
	}
}
