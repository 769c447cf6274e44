// Package reconciler maps asynchronous payment-gateway notifications
// onto ledger state. It is, besides the wallet service, the only writer
// of wallet and transaction state, and it uses the same atomic
// primitives: status transition and balance credit commit together or
// not at all.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumapay/internal/gateway"
	"lumapay/internal/models"
	"lumapay/internal/money"
	"lumapay/internal/repositories"
)

// ErrInvalidSignature marks a webhook whose signature did not match the
// raw payload. No state changes; the delivery is rejected outright.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// chargeEventPrefix scopes webhook handling to the charge event family.
const chargeEventPrefix = "charge."

// EventChargeSuccess is the only event that credits a wallet.
const EventChargeSuccess = "charge.success"

// settleRetries bounds re-reads after losing a settlement race.
const settleRetries = 3

// WebhookEvent is the gateway's notification shape.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// WebhookData carries the charge outcome. Amount is in kobo.
type WebhookData struct {
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
	GatewayResponse string `json:"gateway_response"`
}

// Result reports the effect of processing a notification.
type Result struct {
	Reference string
	// Status is the transaction status after processing ("pending" when
	// the event left it untouched).
	Status string
	// AlreadyProcessed marks a re-delivery for a terminal transaction: a
	// successful no-op, not an error.
	AlreadyProcessed bool
	// Ignored marks an event outside the charge family.
	Ignored bool
	// Credited is the amount applied to the wallet, zero unless this
	// call settled a successful charge.
	Credited money.Money
}

// CacheInvalidator drops cached wallet state after a settlement commit.
type CacheInvalidator interface {
	InvalidateWallet(ctx context.Context, userID uint) error
}

// Service settles deposits from webhook deliveries and verification
// polls.
type Service struct {
	repo          repositories.LedgerRepository
	gateway       gateway.Gateway
	cache         CacheInvalidator
	webhookSecret []byte
	logger        *zap.Logger
}

// NewService creates a reconciler.
func NewService(
	repo repositories.LedgerRepository,
	gw gateway.Gateway,
	cache CacheInvalidator,
	webhookSecret string,
	logger *zap.Logger,
) *Service {
	if repo == nil {
		panic("repo is required")
	}
	if gw == nil {
		panic("gateway is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:          repo,
		gateway:       gw,
		cache:         cache,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
	}
}

// VerifySignature checks the HMAC-SHA512 signature over the exact raw
// request body. Verifying a re-serialized copy would be a correctness
// bug: formatting differences change the hash.
func (s *Service) VerifySignature(rawPayload []byte, signature string) bool {
	return verifySignature(s.webhookSecret, rawPayload, signature)
}

// HandleWebhook processes one raw webhook delivery. The payload must
// already have passed signature verification.
func (s *Service) HandleWebhook(ctx context.Context, rawPayload []byte) (*Result, error) {
	var event WebhookEvent
	if err := json.Unmarshal(rawPayload, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	if !strings.HasPrefix(event.Event, chargeEventPrefix) {
		s.logger.Debug("ignoring webhook event", zap.String("event", event.Event))
		return &Result{Ignored: true}, nil
	}

	succeeded := event.Event == EventChargeSuccess &&
		event.Data.Status == models.TransactionStatusSuccess

	result, err := s.settle(ctx, event.Data.Reference, succeeded, event.Data.Amount, event.Data.GatewayResponse)
	if err != nil {
		s.logger.Error("webhook settlement failed",
			zap.String("event", event.Event),
			zap.String("reference", event.Data.Reference),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// VerifyWithGateway is the active-poll counterpart to the webhook. A
// gateway "not found" marks the deposit abandoned (failed); any other
// gateway error leaves it pending and surfaces as transient.
func (s *Service) VerifyWithGateway(ctx context.Context, reference string) (*Result, error) {
	txn, err := s.repo.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn.IsTerminal() {
		return &Result{Reference: reference, Status: txn.Status, AlreadyProcessed: true}, nil
	}

	verified, err := s.gateway.VerifyTransaction(ctx, gateway.VerifyRequest{
		Reference:        reference,
		GatewayReference: txn.GatewayReference,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrTransactionNotFound) {
			return s.settle(ctx, reference, false, 0, "transaction not found on gateway")
		}
		// Transient: keep the transaction pending so a later poll or
		// webhook can still resolve it.
		s.logger.Warn("gateway verification unavailable",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}

	succeeded := verified.Status == gateway.StatusSuccess
	return s.settle(ctx, reference, succeeded, verified.Amount, verified.GatewayResponse)
}

// settle applies one terminal transition. The status flip is
// conditional on the row still being pending, and the wallet credit
// shares its atomic unit, so concurrent duplicate deliveries collapse
// into a single credit and re-deliveries report already-processed.
func (s *Service) settle(ctx context.Context, reference string, succeeded bool, amountKobo int64, gatewayResponse string) (*Result, error) {
	var (
		result      *Result
		creditedUID uint
	)

	attempt := func() error {
		return s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
			txn, err := tx.GetTransactionByReference(ctx, reference)
			if err != nil {
				return err
			}
			if txn.IsTerminal() {
				result = &Result{Reference: reference, Status: txn.Status, AlreadyProcessed: true}
				return nil
			}

			status := models.TransactionStatusFailed
			if succeeded {
				status = models.TransactionStatusSuccess
			}
			if err := tx.SettleTransaction(ctx, txn.ID, status, gatewayResponse, time.Now()); err != nil {
				return err
			}

			result = &Result{Reference: reference, Status: status}
			if succeeded {
				wallet, err := tx.GetWalletByUserID(ctx, txn.UserID)
				if err != nil {
					return err
				}
				if err := tx.UpdateWalletBalance(ctx, wallet.ID, wallet.Balance, wallet.Balance+amountKobo); err != nil {
					return err
				}
				result.Credited = money.FromKobo(amountKobo)
				creditedUID = txn.UserID
			}
			return nil
		})
	}

	var err error
	for i := 0; i < settleRetries; i++ {
		err = attempt()
		if !errors.Is(err, repositories.ErrConcurrentModification) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if !result.AlreadyProcessed {
		s.logger.Info("deposit settled",
			zap.String("reference", reference),
			zap.String("status", result.Status),
			zap.Int64("credited_kobo", result.Credited.Kobo()))
		if result.Credited.IsPositive() && s.cache != nil {
			if err := s.cache.InvalidateWallet(ctx, creditedUID); err != nil {
				s.logger.Warn("failed to invalidate wallet cache", zap.Error(err))
			}
		}
	}
	return result, nil
}
