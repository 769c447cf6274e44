package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultPaystackBaseURL = "https://api.paystack.co"

// PaystackClient talks to the Paystack transaction API. It is the
// default Gateway implementation and matches the webhook semantics the
// reconciler verifies.
type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPaystackClient creates a Paystack-backed gateway.
func NewPaystackClient(secretKey string, logger *zap.Logger) *PaystackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaystackClient{
		baseURL:   defaultPaystackBaseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *PaystackClient) WithBaseURL(baseURL string) *PaystackClient {
	c.baseURL = baseURL
	return c
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	GatewayResponse string `json:"gateway_response"`
}

func (c *PaystackClient) InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeAuthorization, error) {
	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.Amount,
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var data paystackInitData
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		c.logger.Warn("charge initialization failed",
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, err
	}

	c.logger.Info("charge initialized",
		zap.String("reference", req.Reference),
		zap.String("access_code", data.AccessCode))

	return &ChargeAuthorization{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (c *PaystackClient) VerifyTransaction(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var data paystackVerifyData
	if err := c.call(ctx, http.MethodGet, "/transaction/verify/"+req.Reference, nil, &data); err != nil {
		return nil, err
	}
	return &VerifyResult{
		Status:          data.Status,
		Amount:          data.Amount,
		GatewayResponse: data.GatewayResponse,
	}, nil
}

// call performs one API request and decodes the envelope. Transport
// failures and 5xx responses map to ErrUnavailable; a 404 maps to
// ErrTransactionNotFound; any other API-level rejection maps to
// ErrChargeRejected.
func (c *PaystackClient) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(payload)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: upstream returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrTransactionNotFound
	}

	var envelope paystackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	if !envelope.Status {
		return fmt.Errorf("%w: %s", ErrChargeRejected, envelope.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: malformed response data: %v", ErrUnavailable, err)
		}
	}
	return nil
}
