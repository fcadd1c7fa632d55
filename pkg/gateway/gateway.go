package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Payment statuses reported by the gateway.
const (
	PaymentCaptured = "captured"
	PaymentFailed   = "failed"
	PaymentCreated  = "created"
)

type CreateSessionRequest struct {
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	CustomerID     string `json:"customer_id"`
	ReturnURL      string `json:"return_url"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Session is the handle a buyer is redirected to for payment.
type Session struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

// Payment is one settlement attempt as reported by the gateway.
type Payment struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Method      string `json:"method"`
	Bank        string `json:"bank,omitempty"`
	CardNetwork string `json:"card_network,omitempty"`
}

func (p Payment) Captured() bool {
	return p.Status == PaymentCaptured
}

// Client talks to the external payment gateway.
type Client interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	FetchPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error)
}

var Module = fx.Module("gateway",
	fx.Provide(NewHTTPClient),
)

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(cfg *config.Config) Client {
	timeout := cfg.Gateway.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: cfg.Gateway.BaseURL,
		apiKey:  cfg.Gateway.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errutil.Internal("failed to encode session request", errutil.WithErr(err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/sessions", c.baseURL), bytes.NewBuffer(body))
	if err != nil {
		return nil, errutil.Internal("failed to build session request", errutil.WithErr(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errutil.UpstreamFailure("gateway session request failed", errutil.WithErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		zap.L().Error("gateway returned unexpected status",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, errutil.UpstreamFailure(fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, errutil.UpstreamFailure("failed to decode gateway session", errutil.WithErr(err))
	}

	return &session, nil
}

func (c *HTTPClient) FetchPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error) {
	endpoint := fmt.Sprintf("%s/orders/%s/payments", c.baseURL, url.PathEscape(gatewayOrderID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errutil.Internal("failed to build payments request", errutil.WithErr(err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errutil.UpstreamFailure("gateway payments request failed", errutil.WithErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Error("gateway returned unexpected status",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, errutil.UpstreamFailure(fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	var payload struct {
		Items []Payment `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errutil.UpstreamFailure("failed to decode gateway payments", errutil.WithErr(err))
	}

	return payload.Items, nil
}
