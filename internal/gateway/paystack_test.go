package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaystackInitializeCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1@example.com", body["email"])
		assert.Equal(t, float64(500000), body["amount"])
		assert.Equal(t, "dep_1000_1", body["reference"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]interface{}{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "dep_1000_1",
			},
		})
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc", nil).WithBaseURL(server.URL)

	auth, err := client.InitializeCharge(context.Background(), ChargeRequest{
		Email:     "u1@example.com",
		Amount:    500000,
		Reference: "dep_1000_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", auth.AuthorizationURL)
	assert.Equal(t, "abc123", auth.AccessCode)
	assert.Equal(t, "dep_1000_1", auth.Reference)
}

func TestPaystackInitializeCharge_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid email address",
		})
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc", nil).WithBaseURL(server.URL)

	_, err := client.InitializeCharge(context.Background(), ChargeRequest{
		Email:     "not-an-email",
		Amount:    100,
		Reference: "dep_1",
	})
	assert.ErrorIs(t, err, ErrChargeRejected)
	assert.Contains(t, err.Error(), "Invalid email address")
}

func TestPaystackInitializeCharge_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc", nil).WithBaseURL(server.URL)

	_, err := client.InitializeCharge(context.Background(), ChargeRequest{
		Email:     "u1@example.com",
		Amount:    100,
		Reference: "dep_1",
	})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPaystackInitializeCharge_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewPaystackClient("sk_test_abc", nil).WithBaseURL(server.URL)

	_, err := client.InitializeCharge(context.Background(), ChargeRequest{
		Email:     "u1@example.com",
		Amount:    100,
		Reference: "dep_1",
	})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPaystackVerifyTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/dep_1000_1", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":           "success",
				"amount":           500000,
				"gateway_response": "Approved",
			},
		})
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc", nil).WithBaseURL(server.URL)

	result, err := client.VerifyTransaction(context.Background(), VerifyRequest{Reference: "dep_1000_1"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, int64(500000), result.Amount)
	assert.Equal(t, "Approved", result.GatewayResponse)
}

func TestPaystackVerifyTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Transaction reference not found",
		})
	}))
	defer server.Close()

	client := NewPaystackClient("sk_test_abc", nil).WithBaseURL(server.URL)

	_, err := client.VerifyTransaction(context.Background(), VerifyRequest{Reference: "dep_missing"})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
