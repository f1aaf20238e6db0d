// Package midtrans adapts the Midtrans payment gateway to the application's
// GatewayClient port. Everything Midtrans-specific (auth, DTOs, status
// vocabulary, webhook signatures) stays inside this package; swapping the
// gateway means replacing this package, not the state machine.
package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/config"
)

type HTTPGatewayClient struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.MidtransConfig) *HTTPGatewayClient {
	return &HTTPGatewayClient{
		baseURL:   cfg.BaseURL,
		serverKey: cfg.ServerKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

// CreateCharge opens a Snap payment session for the given order.
func (c *HTTPGatewayClient) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ChargeResponse, error) {
	snapReq := snapChargeRequest{
		TransactionDetails: snapTransactionDetails{
			OrderID:     req.OrderID,
			GrossAmount: req.GrossAmount,
		},
		ItemDetails: []snapItemDetail{{
			ID:       req.OrderID,
			Name:     req.ItemName,
			Price:    req.GrossAmount,
			Quantity: 1,
		}},
	}
	if req.CustomerID != "" {
		snapReq.CustomerDetails = &snapCustomerDetails{FirstName: req.CustomerID}
	}

	url := fmt.Sprintf("%s/snap/v1/transactions", c.baseURL)
	resp, err := sendRequest[snapChargeRequest, snapChargeResponse](c, ctx, http.MethodPost, url, &snapReq)
	if err != nil {
		return nil, err
	}

	return &application.ChargeResponse{
		SessionToken: resp.Token,
		RedirectURL:  resp.RedirectURL,
		OrderID:      req.OrderID,
	}, nil
}

// GetTransactionStatus polls /v2/{order_id}/status, used by the reconciler.
func (c *HTTPGatewayClient) GetTransactionStatus(ctx context.Context, orderID string) (*application.TransactionStatus, error) {
	url := fmt.Sprintf("%s/v2/%s/status", c.baseURL, orderID)
	resp, err := sendRequest[any, transactionStatusResponse](c, ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return &application.TransactionStatus{
		OrderID:       resp.OrderID,
		TransactionID: resp.TransactionID,
		Status:        resp.TransactionStatus,
		StatusCode:    resp.StatusCode,
		GrossAmount:   resp.GrossAmount,
	}, nil
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", c.authHeader())
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var errResp gatewayErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("midtrans returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, newGatewayError(resp.StatusCode, errResp)
	}

	var gatewayResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gatewayResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gatewayResp, nil
}

// authHeader builds Midtrans basic auth: base64 of "serverKey:".
func (c *HTTPGatewayClient) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.serverKey+":"))
}
