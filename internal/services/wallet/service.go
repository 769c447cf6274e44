package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lumapay/internal/gateway"
	"lumapay/internal/models"
	"lumapay/internal/money"
	"lumapay/internal/repositories"
)

type service struct {
	repo    repositories.LedgerRepository
	cache   CacheOperator
	gateway gateway.Gateway
	config  Config
	metrics MetricsCollector
	logger  *zap.Logger
}

// NewService creates a new wallet service.
func NewService(
	repo repositories.LedgerRepository,
	cache CacheOperator,
	gw gateway.Gateway,
	config Config,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if gw == nil {
		panic("gateway is required")
	}
	if cache == nil {
		cache = NoopCache{}
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TransferRetries <= 0 {
		config.TransferRetries = DefaultTransferRetries
	}
	if config.HistoryPageSize <= 0 {
		config.HistoryPageSize = DefaultHistoryPageSize
	}

	return &service{
		repo:    repo,
		cache:   cache,
		gateway: gw,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if cached, err := s.cache.GetWallet(ctx, userID); err == nil && cached != nil {
		return cached, nil
	}

	wallet, err := s.repo.CreateWalletIfAbsent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}

	if err := s.cache.SetWallet(ctx, wallet); err != nil {
		s.logger.Warn("failed to cache wallet", zap.Uint("user_id", userID), zap.Error(err))
	}
	return wallet, nil
}

func (s *service) GetWalletDetails(ctx context.Context, userID uint) (*models.Wallet, error) {
	return s.GetOrCreateWallet(ctx, userID)
}

func (s *service) GetBalance(ctx context.Context, userID uint) (money.Money, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return money.FromKobo(wallet.Balance), nil
}

func (s *service) InitiateDeposit(ctx context.Context, userID uint, amount money.Money, email string) (*DepositReceipt, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("deposit_initiate", time.Since(start)) }()

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if _, err := s.repo.CreateWalletIfAbsent(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}

	// The random tail keeps two deposits by one user in the same second
	// from colliding on reference.
	reference := fmt.Sprintf("dep_%d_%d_%s", time.Now().Unix(), userID, uuid.NewString()[:8])

	// Initiate the remote charge before recording anything: a pending
	// row whose gateway handle is unknown to the caller must not exist.
	auth, err := s.gateway.InitializeCharge(ctx, gateway.ChargeRequest{
		Email:       email,
		Amount:      amount.Kobo(),
		Reference:   reference,
		CallbackURL: s.config.CallbackURL,
		Metadata: map[string]interface{}{
			"user_id": userID,
		},
	})
	if err != nil {
		s.metrics.RecordError("deposit_initiate", "gateway")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}

	row := &models.Transaction{
		UserID:           userID,
		Reference:        reference,
		Amount:           amount.Kobo(),
		Type:             models.TransactionTypeDeposit,
		Status:           models.TransactionStatusPending,
		GatewayReference: auth.AccessCode,
		Metadata: models.JSON{
			models.MetadataKeyEmail: email,
		},
	}
	if err := s.repo.CreateTransactions(ctx, row); err != nil {
		// The charge is already initiated; a failure here is an
		// integrity problem, not something to mask.
		s.metrics.RecordError("deposit_initiate", "ledger")
		s.logger.Error("failed to record pending deposit",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	s.logger.Info("deposit initiated",
		zap.Uint("user_id", userID),
		zap.String("reference", reference),
		zap.Int64("amount_kobo", amount.Kobo()))

	return &DepositReceipt{
		Reference:        reference,
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Amount:           amount,
	}, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*TransferReceipt, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("transfer", time.Since(start)) }()

	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validWalletNumber(req.ToWalletNumber) {
		return nil, ErrInvalidWalletNumber
	}

	key := req.IdempotencyKey
	if key == "" {
		key = transferKey(req.FromUserID, req.ToWalletNumber, req.Amount)
	}

	var (
		receipt *TransferReceipt
		err     error
	)
	for attempt := 0; attempt < s.config.TransferRetries; attempt++ {
		receipt, err = s.attemptTransfer(ctx, req, key)
		if !errors.Is(err, repositories.ErrConcurrentModification) {
			break
		}
		s.logger.Debug("transfer lost balance race, retrying",
			zap.Uint("from_user_id", req.FromUserID),
			zap.Int("attempt", attempt+1))
	}
	if err != nil {
		s.metrics.RecordError("transfer", errorKind(err))
		return nil, err
	}

	if !receipt.Duplicate {
		s.invalidateTransferCaches(ctx, req)
		s.metrics.RecordTransaction(models.TransactionTypeTransferOut, req.Amount.Kobo())
		s.logger.Info("transfer completed",
			zap.Uint("from_user_id", req.FromUserID),
			zap.String("to_wallet", req.ToWalletNumber),
			zap.String("reference", receipt.Reference),
			zap.Int64("amount_kobo", req.Amount.Kobo()))
	}
	return receipt, nil
}

// attemptTransfer runs one atomic transfer attempt. The idempotency
// check, both balance mutations and both ledger rows share one unit, so
// a duplicate cannot slip between check and write and no partial state
// survives an abort.
func (s *service) attemptTransfer(ctx context.Context, req TransferRequest, key string) (*TransferReceipt, error) {
	var receipt *TransferReceipt

	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		prior, err := tx.FindCompletedByIdempotencyKey(ctx, req.FromUserID, key, models.TransactionTypeTransferOut)
		if err != nil {
			return err
		}
		if prior != nil {
			receipt = &TransferReceipt{
				Reference: prior.Reference,
				Amount:    money.FromKobo(-prior.Amount),
				Duplicate: true,
			}
			return nil
		}

		sender, err := tx.CreateWalletIfAbsent(ctx, req.FromUserID)
		if err != nil {
			return err
		}
		recipient, err := tx.GetWalletByNumber(ctx, req.ToWalletNumber)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}
		if sender.ID == recipient.ID {
			return ErrSelfTransfer
		}

		amount := req.Amount.Kobo()
		if sender.Balance < amount {
			return ErrInsufficientBalance
		}

		// Debit before credit: a balance-invariant violation aborts the
		// unit before any credit is applied.
		if err := tx.UpdateWalletBalance(ctx, sender.ID, sender.Balance, sender.Balance-amount); err != nil {
			return err
		}
		if err := tx.UpdateWalletBalance(ctx, recipient.ID, recipient.Balance, recipient.Balance+amount); err != nil {
			return err
		}

		stem := uuid.NewString()
		now := time.Now()
		outRow := &models.Transaction{
			UserID:      sender.UserID,
			Reference:   "trf_" + stem + "_out",
			Amount:      -amount,
			Type:        models.TransactionTypeTransferOut,
			Status:      models.TransactionStatusSuccess,
			CompletedAt: &now,
			Metadata: models.JSON{
				models.MetadataKeyIdempotency:        key,
				models.MetadataKeyCounterpartyWallet: recipient.WalletNumber,
				models.MetadataKeyCounterpartyUser:   recipient.UserID,
			},
		}
		inRow := &models.Transaction{
			UserID:      recipient.UserID,
			Reference:   "trf_" + stem + "_in",
			Amount:      amount,
			Type:        models.TransactionTypeTransferIn,
			Status:      models.TransactionStatusSuccess,
			CompletedAt: &now,
			Metadata: models.JSON{
				models.MetadataKeyIdempotency:        key,
				models.MetadataKeyCounterpartyWallet: sender.WalletNumber,
				models.MetadataKeyCounterpartyUser:   sender.UserID,
			},
		}
		if err := tx.CreateTransactions(ctx, outRow, inRow); err != nil {
			return err
		}

		receipt = &TransferReceipt{Reference: outRow.Reference, Amount: req.Amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) GetTransactionHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = s.config.HistoryPageSize
	}
	rows, err := s.repo.GetTransactionHistory(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return rows, nil
}

func (s *service) SetPin(ctx context.Context, userID uint, pin string) error {
	if len(pin) < 4 {
		return ErrInvalidPin
	}
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}
	if err := s.repo.UpdateWalletPin(ctx, wallet.ID, string(hash)); err != nil {
		return err
	}
	return s.cache.InvalidateWallet(ctx, userID)
}

func (s *service) VerifyPin(ctx context.Context, userID uint, pin string) error {
	wallet, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !wallet.HasPin() {
		return ErrPinNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(wallet.PinHash), []byte(pin)); err != nil {
		return ErrPinMismatch
	}
	return nil
}

func (s *service) invalidateTransferCaches(ctx context.Context, req TransferRequest) {
	if err := s.cache.InvalidateWallet(ctx, req.FromUserID); err != nil {
		s.logger.Warn("failed to invalidate sender cache", zap.Error(err))
	}
	if recipient, err := s.repo.GetWalletByNumber(ctx, req.ToWalletNumber); err == nil {
		if err := s.cache.InvalidateWallet(ctx, recipient.UserID); err != nil {
			s.logger.Warn("failed to invalidate recipient cache", zap.Error(err))
		}
	}
}

// transferKey derives the content-based idempotency key: identical
// requests hash to the same key and collapse onto one transfer.
func transferKey(fromUserID uint, toWalletNumber string, amount money.Money) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s:%d", fromUserID, toWalletNumber, amount.Kobo())))
	return hex.EncodeToString(sum[:])
}

// validWalletNumber checks the public wallet number shape: a numeric
// string of 10 to 13 digits.
func validWalletNumber(number string) bool {
	if len(number) < 10 || len(number) > 13 {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrRecipientNotFound):
		return "recipient_not_found"
	case errors.Is(err, repositories.ErrConcurrentModification):
		return "concurrent_modification"
	default:
		return "internal"
	}
}
