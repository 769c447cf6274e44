package models

import (
	"time"
)

// Wallet holds a single user's custodial balance. Balances are stored in
// kobo and must never go negative; every debit is applied through a
// compare-and-set on the previously read balance.
type Wallet struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	WalletNumber string    `gorm:"uniqueIndex;not null" json:"wallet_number"`
	Balance      int64     `gorm:"not null;default:0" json:"balance"`
	PinHash      string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPin reports whether a transfer PIN has been set on the wallet.
func (w *Wallet) HasPin() bool {
	return w.PinHash != ""
}
