package midtrans

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/config"
)

// RetryGatewayClient decorates a GatewayClient with bounded retries and
// exponential backoff. Only transient failures are retried; a definitive
// answer from the gateway is returned as-is.
type RetryGatewayClient struct {
	inner      application.GatewayClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.GatewayClient, cfg config.RetryConfig) *RetryGatewayClient {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: cfg.MaxRetries,
	}
}

func (r *RetryGatewayClient) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ChargeResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.ChargeResponse, error) {
			return r.inner.CreateCharge(ctx, req)
		},
	)
}

func (r *RetryGatewayClient) GetTransactionStatus(ctx context.Context, orderID string) (*application.TransactionStatus, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.TransactionStatus, error) {
			return r.inner.GetTransactionStatus(ctx, orderID)
		},
	)
}

// Generic retry helper
func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		// 5xx is the gateway's problem; anything else is a definitive answer.
		return gatewayErr.StatusCode >= 500
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// network errors and deadline overruns are worth another try
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(250)) * time.Millisecond

	return base + jitter
}
