package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumapay/internal/gateway"
	"lumapay/internal/models"
	"lumapay/internal/repositories/ledgertest"
	"lumapay/internal/services/reconciler"
)

const webhookTestSecret = "whsec_test"

// unreachableGateway stands in for a provider the test never expects to
// answer.
type unreachableGateway struct{}

func (unreachableGateway) InitializeCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeAuthorization, error) {
	return nil, gateway.ErrUnavailable
}

func (unreachableGateway) VerifyTransaction(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResult, error) {
	return nil, gateway.ErrUnavailable
}

func webhookTestApp(ledger *ledgertest.Ledger) *fiber.App {
	svc := reconciler.NewService(ledger, unreachableGateway{}, nil, webhookTestSecret, nil)
	handler := NewWebhookHandler(svc, nil)

	app := fiber.New()
	app.Post("/api/webhook/gateway", handler.HandleGatewayWebhook)
	app.Get("/api/wallet/deposits/:reference/verify", handler.VerifyDeposit)
	return app
}

func signWebhook(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookTestSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/gateway", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHandleGatewayWebhook(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SeedWallet(1, "100000000001", 0)
	ledger.SeedTransaction(&models.Transaction{
		UserID:    1,
		Reference: "dep_1000_1",
		Amount:    500000,
		Type:      models.TransactionTypeDeposit,
		Status:    models.TransactionStatusPending,
	})
	app := webhookTestApp(ledger)

	payload := []byte(`{"event":"charge.success","data":{"reference":"dep_1000_1","amount":500000,"status":"success"}}`)

	resp := postWebhook(t, app, payload, signWebhook(payload))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "processed", body["message"])
	assert.Equal(t, models.TransactionStatusSuccess, body["status"])

	assert.Equal(t, int64(500000), ledger.Wallets()[0].Balance)

	// Second delivery is acknowledged without a second credit.
	resp = postWebhook(t, app, payload, signWebhook(payload))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "already processed", body["message"])
	assert.Equal(t, int64(500000), ledger.Wallets()[0].Balance)
}

func TestHandleGatewayWebhook_BadSignature(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SeedWallet(1, "100000000001", 0)
	ledger.SeedTransaction(&models.Transaction{
		UserID:    1,
		Reference: "dep_1000_1",
		Amount:    500000,
		Type:      models.TransactionTypeDeposit,
		Status:    models.TransactionStatusPending,
	})
	app := webhookTestApp(ledger)

	payload := []byte(`{"event":"charge.success","data":{"reference":"dep_1000_1","amount":500000,"status":"success"}}`)

	resp := postWebhook(t, app, payload, signWebhook([]byte("different body")))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postWebhook(t, app, payload, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No state change behind a rejected delivery.
	assert.Equal(t, int64(0), ledger.Wallets()[0].Balance)
	assert.Equal(t, models.TransactionStatusPending, ledger.Transactions()[0].Status)
}

func TestHandleGatewayWebhook_UnknownReference(t *testing.T) {
	app := webhookTestApp(ledgertest.New())

	payload := []byte(`{"event":"charge.success","data":{"reference":"dep_missing","amount":100,"status":"success"}}`)

	resp := postWebhook(t, app, payload, signWebhook(payload))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyDeposit_GatewayUnavailable(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SeedWallet(1, "100000000001", 0)
	ledger.SeedTransaction(&models.Transaction{
		UserID:    1,
		Reference: "dep_1000_1",
		Amount:    500000,
		Type:      models.TransactionTypeDeposit,
		Status:    models.TransactionStatusPending,
	})
	app := webhookTestApp(ledger)

	req := httptest.NewRequest(http.MethodGet, "/api/wallet/deposits/dep_1000_1/verify", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	assert.Equal(t, models.TransactionStatusPending, ledger.Transactions()[0].Status)
}
