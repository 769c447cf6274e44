package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

// StripeGateway adapts Stripe Checkout to the Gateway contract. The
// checkout session URL plays the role of the authorization URL and the
// session ID is the gateway handle verification looks the charge up by.
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, logger: logger}
}

func (g *StripeGateway) InitializeCharge(ctx context.Context, req ChargeRequest) (*ChargeAuthorization, error) {
	params := &stripe.CheckoutSessionParams{
		ClientReferenceID:  stripe.String(req.Reference),
		CustomerEmail:      stripe.String(req.Email),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.CallbackURL),
		CancelURL:          stripe.String(req.CallbackURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyNGN)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Wallet deposit"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, fmt.Sprint(v))
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, g.mapError(err)
	}

	g.logger.Info("checkout session created",
		zap.String("reference", req.Reference),
		zap.String("session_id", sess.ID))

	return &ChargeAuthorization{
		AuthorizationURL: sess.URL,
		AccessCode:       sess.ID,
		Reference:        req.Reference,
	}, nil
}

func (g *StripeGateway) VerifyTransaction(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.GatewayReference == "" {
		return nil, ErrTransactionNotFound
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(req.GatewayReference, params)
	if err != nil {
		return nil, g.mapError(err)
	}

	status := StatusAbandoned
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = StatusSuccess
	}
	return &VerifyResult{
		Status:          status,
		Amount:          sess.AmountTotal,
		GatewayResponse: string(sess.PaymentStatus),
	}, nil
}

// mapError translates stripe-go errors into the gateway taxonomy.
func (g *StripeGateway) mapError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.Code == stripe.ErrorCodeResourceMissing:
			return ErrTransactionNotFound
		case stripeErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %s", ErrUnavailable, stripeErr.Msg)
		default:
			return fmt.Errorf("%w: %s", ErrChargeRejected, stripeErr.Msg)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
