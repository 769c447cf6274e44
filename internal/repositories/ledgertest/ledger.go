// Package ledgertest provides an in-memory LedgerRepository for tests.
// It honors the same contract as the Postgres implementation: atomic
// units with rollback, compare-and-set balance updates, unique
// references and wallet numbers.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lumapay/internal/models"
	"lumapay/internal/repositories"
)

// Ledger is an in-memory implementation of repositories.LedgerRepository.
// The zero value is not usable; create one with New.
type Ledger struct {
	mu    sync.Mutex
	state *state

	// inTx marks a repository view running inside ExecuteInTransaction.
	inTx bool
}

type state struct {
	wallets      map[uint]*models.Wallet // by wallet ID
	transactions []*models.Transaction
	nextWalletID uint
	nextTxnID    uint
}

// New creates an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{state: &state{
		wallets:      make(map[uint]*models.Wallet),
		nextWalletID: 1,
		nextTxnID:    1,
	}}
}

// SeedWallet inserts a wallet with the given balance and returns it.
func (l *Ledger) SeedWallet(userID uint, walletNumber string, balance int64) *models.Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := &models.Wallet{
		ID:           l.state.nextWalletID,
		UserID:       userID,
		WalletNumber: walletNumber,
		Balance:      balance,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	l.state.nextWalletID++
	l.state.wallets[w.ID] = w
	return cloneWallet(w)
}

// SeedTransaction inserts a transaction row as-is (assigning an ID).
func (l *Ledger) SeedTransaction(txn *models.Transaction) *models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	row := cloneTxn(txn)
	row.ID = l.state.nextTxnID
	l.state.nextTxnID++
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	l.state.transactions = append(l.state.transactions, row)
	return cloneTxn(row)
}

// Wallets returns a snapshot of all wallets.
func (l *Ledger) Wallets() []*models.Wallet {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.Wallet, 0, len(l.state.wallets))
	for _, w := range l.state.wallets {
		out = append(out, cloneWallet(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transactions returns a snapshot of all transaction rows.
func (l *Ledger) Transactions() []*models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.Transaction, 0, len(l.state.transactions))
	for _, t := range l.state.transactions {
		out = append(out, cloneTxn(t))
	}
	return out
}

func (l *Ledger) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	l.lock()
	defer l.unlock()
	for _, w := range l.state.wallets {
		if w.UserID == userID {
			return cloneWallet(w), nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (l *Ledger) GetWalletByNumber(ctx context.Context, walletNumber string) (*models.Wallet, error) {
	l.lock()
	defer l.unlock()
	for _, w := range l.state.wallets {
		if w.WalletNumber == walletNumber {
			return cloneWallet(w), nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (l *Ledger) CreateWalletIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error) {
	l.lock()
	defer l.unlock()
	for _, w := range l.state.wallets {
		if w.UserID == userID {
			return cloneWallet(w), nil
		}
	}
	w := &models.Wallet{
		ID:           l.state.nextWalletID,
		UserID:       userID,
		WalletNumber: generateWalletNumber(l.state),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	l.state.nextWalletID++
	l.state.wallets[w.ID] = w
	return cloneWallet(w), nil
}

func (l *Ledger) UpdateWalletBalance(ctx context.Context, walletID uint, oldBalance, newBalance int64) error {
	l.lock()
	defer l.unlock()
	w, ok := l.state.wallets[walletID]
	if !ok || w.Balance != oldBalance {
		return repositories.ErrConcurrentModification
	}
	w.Balance = newBalance
	w.UpdatedAt = time.Now()
	return nil
}

func (l *Ledger) UpdateWalletPin(ctx context.Context, walletID uint, pinHash string) error {
	l.lock()
	defer l.unlock()
	w, ok := l.state.wallets[walletID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	w.PinHash = pinHash
	w.UpdatedAt = time.Now()
	return nil
}

func (l *Ledger) CreateTransactions(ctx context.Context, rows ...*models.Transaction) error {
	l.lock()
	defer l.unlock()
	for _, row := range rows {
		for _, existing := range l.state.transactions {
			if existing.Reference == row.Reference {
				return repositories.ErrDuplicateReference
			}
		}
		stored := cloneTxn(row)
		stored.ID = l.state.nextTxnID
		l.state.nextTxnID++
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		stored.UpdatedAt = stored.CreatedAt
		l.state.transactions = append(l.state.transactions, stored)
		row.ID = stored.ID
	}
	return nil
}

func (l *Ledger) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	l.lock()
	defer l.unlock()
	for _, t := range l.state.transactions {
		if t.Reference == reference {
			return cloneTxn(t), nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (l *Ledger) GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	l.lock()
	defer l.unlock()
	var rows []models.Transaction
	for _, t := range l.state.transactions {
		if t.UserID == userID {
			rows = append(rows, *cloneTxn(t))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (l *Ledger) FindCompletedByIdempotencyKey(ctx context.Context, userID uint, key, txType string) (*models.Transaction, error) {
	l.lock()
	defer l.unlock()
	for _, t := range l.state.transactions {
		if t.UserID == userID && t.Type == txType && t.Status == models.TransactionStatusSuccess && t.IdempotencyKey() == key {
			return cloneTxn(t), nil
		}
	}
	return nil, nil
}

func (l *Ledger) SettleTransaction(ctx context.Context, id uint, status, gatewayResponse string, completedAt time.Time) error {
	l.lock()
	defer l.unlock()
	for _, t := range l.state.transactions {
		if t.ID == id {
			if t.Status != models.TransactionStatusPending {
				return repositories.ErrConcurrentModification
			}
			t.Status = status
			t.GatewayResponse = gatewayResponse
			done := completedAt
			t.CompletedAt = &done
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return repositories.ErrTransactionNotFound
}

// ExecuteInTransaction runs fn against a deep copy of the state under
// the ledger lock, swapping the copy in only when fn succeeds. That
// gives the same all-or-nothing visibility as a database transaction.
func (l *Ledger) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	if l.inTx {
		return fn(l)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := l.state
	working := snapshot.clone()
	view := &Ledger{state: working, inTx: true}

	if err := fn(view); err != nil {
		return err
	}
	l.state = working
	return nil
}

// lock is a no-op inside a transaction view, where the outer ledger
// already holds the mutex.
func (l *Ledger) lock() {
	if !l.inTx {
		l.mu.Lock()
	}
}

func (l *Ledger) unlock() {
	if !l.inTx {
		l.mu.Unlock()
	}
}

func (s *state) clone() *state {
	out := &state{
		wallets:      make(map[uint]*models.Wallet, len(s.wallets)),
		transactions: make([]*models.Transaction, 0, len(s.transactions)),
		nextWalletID: s.nextWalletID,
		nextTxnID:    s.nextTxnID,
	}
	for id, w := range s.wallets {
		out.wallets[id] = cloneWallet(w)
	}
	for _, t := range s.transactions {
		out.transactions = append(out.transactions, cloneTxn(t))
	}
	return out
}

func cloneWallet(w *models.Wallet) *models.Wallet {
	cp := *w
	return &cp
}

func cloneTxn(t *models.Transaction) *models.Transaction {
	cp := *t
	if t.Metadata != nil {
		cp.Metadata = make(models.JSON, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	if t.CompletedAt != nil {
		done := *t.CompletedAt
		cp.CompletedAt = &done
	}
	return &cp
}

func generateWalletNumber(s *state) string {
	// Deterministic 12-digit numbers keep fake allocations unique.
	return fmt.Sprintf("%012d", 100000000000+int64(s.nextWalletID))
}
