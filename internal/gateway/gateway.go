// Package gateway defines the payment gateway capability the wallet
// service and the reconciler depend on, plus the concrete clients.
package gateway

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable marks a transient gateway failure. Ledger state is
	// left pending; the caller retries by polling or webhook re-delivery.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrChargeRejected marks a confirmed negative response from the
	// gateway at charge initiation.
	ErrChargeRejected = errors.New("payment gateway rejected the charge")

	// ErrTransactionNotFound means the gateway has no record of the
	// reference. The deposit is treated as abandoned.
	ErrTransactionNotFound = errors.New("transaction not found on payment gateway")
)

// Charge verification statuses reported by VerifyTransaction.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ChargeRequest describes a remote charge to initiate. Amount is in
// kobo.
type ChargeRequest struct {
	Email       string
	Amount      int64
	Reference   string
	CallbackURL string
	Metadata    map[string]interface{}
}

// ChargeAuthorization is the redirect handle returned by a successful
// initiation.
type ChargeAuthorization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyRequest identifies a charge to verify. Reference is the ledger
// reference; GatewayReference is the handle stored at initiation, for
// providers that cannot look a charge up by caller reference.
type VerifyRequest struct {
	Reference        string
	GatewayReference string
}

// VerifyResult is the gateway's view of a charge.
type VerifyResult struct {
	Status          string
	Amount          int64
	GatewayResponse string
}

// Gateway initiates remote charges and reports their outcome. The
// asynchronous counterpart is the signed webhook handled by the
// reconciler.
type Gateway interface {
	InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeAuthorization, error)
	VerifyTransaction(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}
