package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeDeposit     = "deposit"
	TransactionTypeTransferOut = "transfer_out"
	TransactionTypeTransferIn  = "transfer_in"
)

// Transaction statuses. A transaction only ever moves pending -> success
// or pending -> failed; terminal states are never left.
const (
	TransactionStatusPending = "pending"
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

// Metadata keys used by the ledger.
const (
	MetadataKeyIdempotency        = "idempotency_key"
	MetadataKeyCounterpartyWallet = "counterparty_wallet"
	MetadataKeyCounterpartyUser   = "counterparty_user_id"
	MetadataKeyEmail              = "email"
)

// Transaction is an immutable ledger row. Amount is signed kobo:
// positive for credits, negative for debits. Reference is unique and
// caller-visible; GatewayReference is the external handle returned by
// the payment gateway at initiation.
type Transaction struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	UserID           uint       `gorm:"index;not null" json:"user_id"`
	Reference        string     `gorm:"uniqueIndex;not null" json:"reference"`
	Amount           int64      `gorm:"not null" json:"amount"`
	Type             string     `gorm:"not null" json:"type"`
	Status           string     `gorm:"index;not null;default:'pending'" json:"status"`
	GatewayReference string     `json:"gateway_reference,omitempty"`
	GatewayResponse  string     `json:"gateway_response,omitempty"`
	Metadata         JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the transaction has reached a final status.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}

// IdempotencyKey returns the idempotency key carried in the metadata,
// or the empty string when none was recorded.
func (t *Transaction) IdempotencyKey() string {
	if t.Metadata == nil {
		return ""
	}
	if key, ok := t.Metadata[MetadataKeyIdempotency].(string); ok {
		return key
	}
	return ""
}
