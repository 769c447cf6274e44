// Package repositories provides the data access layer for the ledger.
// All wallet and transaction writes go through LedgerRepository so that
// the business logic can be exercised against an in-memory fake.
package repositories

import (
	"context"
	"errors"
	"time"

	"lumapay/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateReference indicates a unique violation on a transaction
	// reference. The reference scheme makes this unreachable in practice,
	// so a hit points at a reference-generation bug and is never masked.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrConcurrentModification is returned when a conditional balance
	// update lost an optimistic-concurrency race. Callers re-read and
	// retry a bounded number of times.
	ErrConcurrentModification = errors.New("wallet modified concurrently")

	// ErrWalletAllocationFailed is returned when wallet number generation
	// exhausted its retry budget.
	ErrWalletAllocationFailed = errors.New("wallet number allocation failed")
)

// LedgerRepository is the storage contract for wallets and transactions.
//
// Methods invoked on a repository obtained through ExecuteInTransaction
// run inside that transaction; any error returned from the callback
// aborts the whole unit with no partial effect.
type LedgerRepository interface {
	// Wallet operations
	GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	GetWalletByNumber(ctx context.Context, walletNumber string) (*models.Wallet, error)
	// CreateWalletIfAbsent returns the user's wallet, creating it with a
	// freshly allocated wallet number when missing. Concurrent first-time
	// calls for the same user resolve to a single row.
	CreateWalletIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error)
	// UpdateWalletBalance applies newBalance only if the stored balance
	// still equals oldBalance, and returns ErrConcurrentModification
	// otherwise.
	UpdateWalletBalance(ctx context.Context, walletID uint, oldBalance, newBalance int64) error
	UpdateWalletPin(ctx context.Context, walletID uint, pinHash string) error

	// Transaction operations
	CreateTransactions(ctx context.Context, rows ...*models.Transaction) error
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
	// FindCompletedByIdempotencyKey returns the user's successful
	// transaction of the given type carrying the idempotency key, or nil
	// when there is none. Keys are scoped per user: the same key used by
	// two users names two distinct transfers.
	FindCompletedByIdempotencyKey(ctx context.Context, userID uint, key, txType string) (*models.Transaction, error)
	// SettleTransaction moves a pending transaction to a terminal status.
	// It is conditional on the row still being pending and returns
	// ErrConcurrentModification when another writer settled it first.
	SettleTransaction(ctx context.Context, id uint, status, gatewayResponse string, completedAt time.Time) error

	// ExecuteInTransaction runs fn as a single all-or-nothing unit.
	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error
}
