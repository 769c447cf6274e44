package repositories

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lumapay/internal/models"
)

const (
	// maxAllocationAttempts caps the wallet number generation loop.
	maxAllocationAttempts = 5

	uniqueViolationCode = "23505"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a GORM-backed LedgerRepository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByNumber(ctx context.Context, walletNumber string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("wallet_number = ?", walletNumber).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) CreateWalletIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := r.GetWalletByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	// ON CONFLICT DO NOTHING keeps a lost race from raising an error,
	// which would poison an enclosing transaction. A skipped insert is
	// then disambiguated by re-reading the user's row.
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		created := &models.Wallet{UserID: userID, WalletNumber: generateWalletNumber()}
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(created)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return created, nil
		}

		existing, err := r.GetWalletByUserID(ctx, userID)
		if err == nil {
			// Lost the create race for this user; the winner's row is the
			// wallet.
			return existing, nil
		}
		if !errors.Is(err, ErrWalletNotFound) {
			return nil, err
		}
		// Wallet number collision; try another candidate.
	}
	return nil, ErrWalletAllocationFailed
}

func (r *ledgerRepository) UpdateWalletBalance(ctx context.Context, walletID uint, oldBalance, newBalance int64) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND balance = ?", walletID, oldBalance).
		Updates(map[string]interface{}{
			"balance":    newBalance,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (r *ledgerRepository) UpdateWalletPin(ctx context.Context, walletID uint, pinHash string) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"pin_hash":   pinHash,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update pin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *ledgerRepository) CreateTransactions(ctx context.Context, rows ...*models.Transaction) error {
	for _, row := range rows {
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			if isUniqueViolation(err, "reference") {
				return ErrDuplicateReference
			}
			return fmt.Errorf("failed to create transaction: %w", err)
		}
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return rows, nil
}

func (r *ledgerRepository) FindCompletedByIdempotencyKey(ctx context.Context, userID uint, key, txType string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND status = ? AND metadata->>'idempotency_key' = ?",
			userID, txType, models.TransactionStatusSuccess, key).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query idempotency key: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) SettleTransaction(ctx context.Context, id uint, status, gatewayResponse string, completedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":           status,
			"gateway_response": gatewayResponse,
			"completed_at":     completedAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to settle transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

// generateWalletNumber builds a 12-digit candidate: a 10-digit unix-time
// suffix plus 2 random digits. Collisions surface as skipped inserts in
// CreateWalletIfAbsent, which then retries with a new candidate.
func generateWalletNumber() string {
	ts := time.Now().Unix() % 10_000_000_000
	return fmt.Sprintf("%010d%02d", ts, rand.Intn(100))
}

// isUniqueViolation reports whether err is a Postgres unique violation on
// a constraint whose name mentions column.
func isUniqueViolation(err error, column string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return pqErr.Constraint == "" || strings.Contains(pqErr.Constraint, column)
	}
	return false
}
