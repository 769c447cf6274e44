package reconciler

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lumapay/internal/gateway"
	"lumapay/internal/models"
	"lumapay/internal/repositories"
	"lumapay/internal/repositories/ledgertest"
)

const testSecret = "whsec_test"

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) InitializeCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeAuthorization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeAuthorization), args.Error(1)
}

func (m *mockGateway) VerifyTransaction(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.VerifyResult), args.Error(1)
}

func sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func seedPendingDeposit(ledger *ledgertest.Ledger, userID uint, reference string, amountKobo int64) {
	ledger.SeedWallet(userID, fmt.Sprintf("10000000000%d", userID), 0)
	ledger.SeedTransaction(&models.Transaction{
		UserID:           userID,
		Reference:        reference,
		Amount:           amountKobo,
		Type:             models.TransactionTypeDeposit,
		Status:           models.TransactionStatusPending,
		GatewayReference: "ac_" + reference,
	})
}

func newTestService(ledger *ledgertest.Ledger, gw gateway.Gateway) *Service {
	if gw == nil {
		gw = new(mockGateway)
	}
	return NewService(ledger, gw, nil, testSecret, nil)
}

func TestVerifySignature(t *testing.T) {
	svc := newTestService(ledgertest.New(), nil)
	payload := []byte(`{"event":"charge.success"}`)

	assert.True(t, svc.VerifySignature(payload, sign(payload)))
	assert.False(t, svc.VerifySignature(payload, sign([]byte(`{"event":"tampered"}`))))
	assert.False(t, svc.VerifySignature(payload, ""))
	assert.False(t, svc.VerifySignature(payload, "not-hex"))
}

func TestHandleWebhook_ChargeSuccessCreditsOnce(t *testing.T) {
	ledger := ledgertest.New()
	seedPendingDeposit(ledger, 1, "dep_1000_1", 500000)
	svc := newTestService(ledger, nil)

	payload := []byte(`{"event":"charge.success","data":{"reference":"dep_1000_1","amount":500000,"status":"success","gateway_response":"Approved"}}`)

	result, err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, result.Status)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, int64(500000), result.Credited.Kobo())

	assert.Equal(t, int64(500000), ledger.Wallets()[0].Balance)

	rows := ledger.Transactions()
	require.Len(t, rows, 1)
	assert.Equal(t, models.TransactionStatusSuccess, rows[0].Status)
	assert.Equal(t, "Approved", rows[0].GatewayResponse)
	require.NotNil(t, rows[0].CompletedAt)

	// Re-delivery: terminal row, no second credit.
	result, err = svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.True(t, result.Credited.IsZero())
	assert.Equal(t, int64(500000), ledger.Wallets()[0].Balance)
}

func TestHandleWebhook_ChargeFailed(t *testing.T) {
	ledger := ledgertest.New()
	seedPendingDeposit(ledger, 1, "dep_1000_1", 500000)
	svc := newTestService(ledger, nil)

	payload := []byte(`{"event":"charge.failed","data":{"reference":"dep_1000_1","amount":500000,"status":"failed","gateway_response":"Declined"}}`)

	result, err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, result.Status)
	assert.True(t, result.Credited.IsZero())

	assert.Equal(t, int64(0), ledger.Wallets()[0].Balance)
	assert.Equal(t, models.TransactionStatusFailed, ledger.Transactions()[0].Status)
}

func TestHandleWebhook_NonChargeEventIgnored(t *testing.T) {
	ledger := ledgertest.New()
	seedPendingDeposit(ledger, 1, "dep_1000_1", 500000)
	svc := newTestService(ledger, nil)

	payload := []byte(`{"event":"transfer.success","data":{"reference":"dep_1000_1","amount":500000,"status":"success"}}`)

	result, err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, result.Ignored)

	assert.Equal(t, models.TransactionStatusPending, ledger.Transactions()[0].Status)
	assert.Equal(t, int64(0), ledger.Wallets()[0].Balance)
}

func TestHandleWebhook_UnknownReference(t *testing.T) {
	svc := newTestService(ledgertest.New(), nil)

	payload := []byte(`{"event":"charge.success","data":{"reference":"dep_missing","amount":100,"status":"success"}}`)

	_, err := svc.HandleWebhook(context.Background(), payload)
	assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	svc := newTestService(ledgertest.New(), nil)

	_, err := svc.HandleWebhook(context.Background(), []byte("{not json"))
	assert.Error(t, err)
}

func TestVerifyWithGateway_Success(t *testing.T) {
	ledger := ledgertest.New()
	seedPendingDeposit(ledger, 1, "dep_1000_1", 500000)

	gw := new(mockGateway)
	gw.On("VerifyTransaction", mock.Anything, gateway.VerifyRequest{
		Reference:        "dep_1000_1",
		GatewayReference: "ac_dep_1000_1",
	}).Return(&gateway.VerifyResult{
		Status:          gateway.StatusSuccess,
		Amount:          500000,
		GatewayResponse: "Approved",
	}, nil)

	svc := newTestService(ledger, gw)

	result, err := svc.VerifyWithGateway(context.Background(), "dep_1000_1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, result.Status)
	assert.Equal(t, int64(500000), result.Credited.Kobo())
	assert.Equal(t, int64(500000), ledger.Wallets()[0].Balance)

	gw.AssertExpectations(t)
}

func TestVerifyWithGateway_NotFoundMarksFailed(t *testing.T) {
	ledger := ledgertest.New()
	seedPendingDeposit(ledger, 1, "dep_1000_1", 500000)

	gw := new(mockGateway)
	gw.On("VerifyTransaction", mock.Anything, mock.Anything).
		Return(nil, gateway.ErrTransactionNotFound)

	svc := newTestService(ledger, gw)

	result, err := svc.VerifyWithGateway(context.Background(), "dep_1000_1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, result.Status)
	assert.True(t, result.Credited.IsZero())

	assert.Equal(t, models.TransactionStatusFailed, ledger.Transactions()[0].Status)
	assert.Equal(t, int64(0), ledger.Wallets()[0].Balance)
}

func TestVerifyWithGateway_TransientLeavesPending(t *testing.T) {
	ledger := ledgertest.New()
	seedPendingDeposit(ledger, 1, "dep_1000_1", 500000)

	gw := new(mockGateway)
	gw.On("VerifyTransaction", mock.Anything, mock.Anything).
		Return(nil, gateway.ErrUnavailable)

	svc := newTestService(ledger, gw)

	_, err := svc.VerifyWithGateway(context.Background(), "dep_1000_1")
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	assert.Equal(t, models.TransactionStatusPending, ledger.Transactions()[0].Status)
	assert.Equal(t, int64(0), ledger.Wallets()[0].Balance)
}

func TestVerifyWithGateway_AlreadyTerminal(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SeedWallet(1, "100000000001", 500000)
	ledger.SeedTransaction(&models.Transaction{
		UserID:    1,
		Reference: "dep_1000_1",
		Amount:    500000,
		Type:      models.TransactionTypeDeposit,
		Status:    models.TransactionStatusSuccess,
	})

	// No gateway expectations: a terminal row must short-circuit the poll.
	gw := new(mockGateway)
	svc := newTestService(ledger, gw)

	result, err := svc.VerifyWithGateway(context.Background(), "dep_1000_1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, models.TransactionStatusSuccess, result.Status)

	gw.AssertExpectations(t)
}

func TestVerifyWithGateway_UnknownReference(t *testing.T) {
	svc := newTestService(ledgertest.New(), nil)

	_, err := svc.VerifyWithGateway(context.Background(), "dep_missing")
	assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
}
