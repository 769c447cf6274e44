package wallet

import (
	"context"

	"lumapay/internal/models"
	"lumapay/internal/money"
)

// TransferRequest describes a peer-to-peer transfer. IdempotencyKey is
// optional: when empty the service derives one from the request content,
// which collapses identical requests inside the dedup window; callers
// that need to distinguish them supply their own key. Keys are scoped to
// the sender, so two users reusing the same key never collide.
type TransferRequest struct {
	FromUserID     uint
	ToWalletNumber string
	Amount         money.Money
	IdempotencyKey string
}

// TransferReceipt is the outcome of a transfer. Duplicate marks a
// request that was collapsed onto a previously completed transfer; the
// reference is then the original one.
type TransferReceipt struct {
	Reference string
	Amount    money.Money
	Duplicate bool
}

// DepositReceipt is the outcome of a deposit initiation.
type DepositReceipt struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
	Amount           money.Money
}

// Config holds wallet service configuration.
type Config struct {
	// CallbackURL is passed to the gateway at charge initiation.
	CallbackURL string
	// TransferRetries bounds internal retries after an optimistic
	// concurrency loss before the error surfaces to the caller.
	TransferRetries int
	// HistoryPageSize is the default page size for history queries.
	HistoryPageSize int
}

// Default configuration values
const (
	DefaultTransferRetries = 3
	DefaultHistoryPageSize = 20
)

// CacheOperator is the wallet caching contract the service needs.
type CacheOperator interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// NoopCache is used where no cache is wired, e.g. in tests.
type NoopCache struct{}

func (NoopCache) GetWallet(context.Context, uint) (*models.Wallet, error) { return nil, nil }
func (NoopCache) SetWallet(context.Context, *models.Wallet) error        { return nil }
func (NoopCache) InvalidateWallet(context.Context, uint) error           { return nil }
