package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"lumapay/internal/gateway"
	"lumapay/internal/repositories"
	"lumapay/internal/services/reconciler"
	"lumapay/internal/utils"
)

// SignatureHeader carries the HMAC-SHA512 hex digest of the raw webhook
// body.
const SignatureHeader = "X-Paystack-Signature"

// Reconciler is the settlement contract the webhook handler needs.
type Reconciler interface {
	VerifySignature(rawPayload []byte, signature string) bool
	HandleWebhook(ctx context.Context, rawPayload []byte) (*reconciler.Result, error)
	VerifyWithGateway(ctx context.Context, reference string) (*reconciler.Result, error)
}

// WebhookHandler receives gateway notifications.
type WebhookHandler struct {
	reconciler Reconciler
	logger     *zap.Logger
}

func NewWebhookHandler(svc Reconciler, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{reconciler: svc, logger: logger}
}

// HandleGatewayWebhook verifies the signature over the exact raw body
// and settles the referenced deposit. Re-deliveries are acknowledged
// without re-applying effects.
func (h *WebhookHandler) HandleGatewayWebhook(c *fiber.Ctx) error {
	raw := c.Body()
	signature := c.Get(SignatureHeader)

	if !h.reconciler.VerifySignature(raw, signature) {
		h.logger.Warn("webhook rejected: signature mismatch",
			zap.String("remote_ip", c.IP()),
			zap.Int("payload_size", len(raw)))
		return utils.Unauthorized(c, reconciler.ErrInvalidSignature.Error())
	}

	result, err := h.reconciler.HandleWebhook(c.Context(), raw)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "unknown transaction reference")
		}
		return utils.InternalError(c, "failed to process webhook")
	}

	if result.Ignored {
		return utils.Success(c, fiber.Map{"message": "event ignored"})
	}
	if result.AlreadyProcessed {
		return utils.Success(c, fiber.Map{
			"message":   "already processed",
			"reference": result.Reference,
			"status":    result.Status,
		})
	}
	return utils.Success(c, fiber.Map{
		"message":   "processed",
		"reference": result.Reference,
		"status":    result.Status,
	})
}

// VerifyDeposit triggers an explicit verification poll for a pending
// deposit, the fallback when a webhook never arrives.
func (h *WebhookHandler) VerifyDeposit(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return utils.BadRequest(c, "missing reference")
	}

	result, err := h.reconciler.VerifyWithGateway(c.Context(), reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "unknown transaction reference")
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			return utils.Error(c, fiber.StatusServiceUnavailable, "gateway unavailable, try again")
		}
		return utils.InternalError(c, "verification failed")
	}

	return utils.Success(c, fiber.Map{
		"reference":         result.Reference,
		"status":            result.Status,
		"already_processed": result.AlreadyProcessed,
	})
}
