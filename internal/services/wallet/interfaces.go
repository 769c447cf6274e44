package wallet

import (
	"context"

	"lumapay/internal/models"
	"lumapay/internal/money"
)

// Service is the wallet business logic boundary consumed by the HTTP
// layer. Callers are already authenticated; the service only enforces
// business rules.
type Service interface {
	// Wallet access. Reads auto-create the wallet on first use, so a
	// balance query can cause a write.
	GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetWalletDetails(ctx context.Context, userID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID uint) (money.Money, error)

	// Deposit lifecycle (initiation half; settlement is the reconciler's).
	InitiateDeposit(ctx context.Context, userID uint, amount money.Money, email string) (*DepositReceipt, error)

	// Peer-to-peer transfer, idempotent by key.
	Transfer(ctx context.Context, req TransferRequest) (*TransferReceipt, error)

	GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)

	// Transfer PIN management.
	SetPin(ctx context.Context, userID uint, pin string) error
	VerifyPin(ctx context.Context, userID uint, pin string) error
}
