package midtrans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyGateway struct {
	failures int
	err      error
	calls    int
}

func (f *flakyGateway) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ChargeResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &application.ChargeResponse{OrderID: req.OrderID, SessionToken: "tok"}, nil
}

func (f *flakyGateway) GetTransactionStatus(ctx context.Context, orderID string) (*application.TransactionStatus, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &application.TransactionStatus{OrderID: orderID, Status: "settlement"}, nil
}

func retryCfg() config.RetryConfig {
	return config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3}
}

func TestRetryGatewayClient(t *testing.T) {
	t.Run("retries transient gateway errors until success", func(t *testing.T) {
		inner := &flakyGateway{failures: 2, err: &GatewayError{StatusCode: 503, Message: "temporarily unavailable"}}
		client := NewRetryGatewayClient(inner, retryCfg())

		resp, err := client.CreateCharge(context.Background(), application.ChargeRequest{OrderID: "PJV-1"})
		require.NoError(t, err)
		assert.Equal(t, "PJV-1", resp.OrderID)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		inner := &flakyGateway{failures: 10, err: &GatewayError{StatusCode: 500, Message: "broken"}}
		client := NewRetryGatewayClient(inner, retryCfg())

		_, err := client.CreateCharge(context.Background(), application.ChargeRequest{OrderID: "PJV-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum retries exceeded")
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("does not retry a definitive 4xx answer", func(t *testing.T) {
		inner := &flakyGateway{failures: 10, err: &GatewayError{StatusCode: 400, Code: "VALIDATION_ERROR", Message: "gross_amount is required"}}
		client := NewRetryGatewayClient(inner, retryCfg())

		_, err := client.GetTransactionStatus(context.Background(), "PJV-1")
		require.Error(t, err)
		assert.Equal(t, 1, inner.calls)

		var gatewayErr *GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, 400, gatewayErr.StatusCode)
	})

	t.Run("does not retry a cancelled context", func(t *testing.T) {
		inner := &flakyGateway{failures: 10, err: context.Canceled}
		client := NewRetryGatewayClient(inner, retryCfg())

		_, err := client.CreateCharge(context.Background(), application.ChargeRequest{OrderID: "PJV-1"})
		require.Error(t, err)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("retries plain network errors", func(t *testing.T) {
		inner := &flakyGateway{failures: 1, err: errors.New("connection refused")}
		client := NewRetryGatewayClient(inner, retryCfg())

		status, err := client.GetTransactionStatus(context.Background(), "PJV-2")
		require.NoError(t, err)
		assert.Equal(t, "settlement", status.Status)
		assert.Equal(t, 2, inner.calls)
	})
}
