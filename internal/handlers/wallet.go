package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"lumapay/internal/middleware"
	"lumapay/internal/models"
	"lumapay/internal/money"
	"lumapay/internal/services/wallet"
	"lumapay/internal/utils"
)

// WalletHandler exposes the wallet service over HTTP.
type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// extractUserClaims resolves the authenticated caller from request locals.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals(middleware.ClaimsLocal).(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWalletDetails(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to get wallet")
	}
	return utils.Success(c, fiber.Map{"wallet": w})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.walletService.GetBalance(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to get balance")
	}
	return utils.Success(c, fiber.Map{
		"balance":      balance.Naira(),
		"balance_kobo": balance.Kobo(),
	})
}

func (h *WalletHandler) InitiateDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount string `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	amount, err := money.Parse(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	receipt, err := h.walletService.InitiateDeposit(c.Context(), claims.UserID, amount, claims.Email)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			return utils.BadRequest(c, err.Error())
		}
		if errors.Is(err, wallet.ErrPaymentInitiation) {
			return utils.Error(c, fiber.StatusBadGateway, "payment initiation failed")
		}
		return utils.InternalError(c, "failed to initiate deposit")
	}

	return utils.Success(c, fiber.Map{
		"reference":         receipt.Reference,
		"authorization_url": receipt.AuthorizationURL,
		"access_code":       receipt.AccessCode,
		"amount":            receipt.Amount.Naira(),
	})
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ToWalletNumber string `json:"to_wallet_number"`
		Amount         string `json:"amount"`
		Pin            string `json:"pin"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	amount, err := money.Parse(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	// The transfer PIN guards the HTTP surface; the core transfer
	// operation itself is PIN-agnostic.
	if err := h.walletService.VerifyPin(c.Context(), claims.UserID, input.Pin); err != nil {
		if errors.Is(err, wallet.ErrPinNotSet) {
			return utils.BadRequest(c, "set a transfer pin first")
		}
		return utils.Forbidden(c, "invalid transfer pin")
	}

	receipt, err := h.walletService.Transfer(c.Context(), wallet.TransferRequest{
		FromUserID:     claims.UserID,
		ToWalletNumber: input.ToWalletNumber,
		Amount:         amount,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount),
			errors.Is(err, wallet.ErrInvalidWalletNumber),
			errors.Is(err, wallet.ErrSelfTransfer),
			errors.Is(err, wallet.ErrInsufficientBalance):
			return utils.BadRequest(c, err.Error())
		case errors.Is(err, wallet.ErrRecipientNotFound):
			return utils.NotFound(c, err.Error())
		default:
			return utils.InternalError(c, "transfer failed")
		}
	}

	return utils.Success(c, fiber.Map{
		"reference": receipt.Reference,
		"amount":    receipt.Amount.Naira(),
		"duplicate": receipt.Duplicate,
	})
}

func (h *WalletHandler) GetTransactionHistory(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)

	rows, err := h.walletService.GetTransactionHistory(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "failed to get transaction history")
	}
	return utils.Success(c, fiber.Map{"transactions": rows})
}

func (h *WalletHandler) SetPin(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Pin string `json:"pin"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.walletService.SetPin(c.Context(), claims.UserID, input.Pin); err != nil {
		if errors.Is(err, wallet.ErrInvalidPin) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "failed to set pin")
	}
	return utils.Success(c, fiber.Map{"message": "pin updated"})
}
