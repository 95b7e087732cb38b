package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/stripe/stripe-go/v82"
)

// Gateway charges subscribers with off-session PaymentIntents
type Gateway struct {
	client *stripe.Client
	logger ports.Logger
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// NewGateway creates a Stripe gateway for secretKey
func NewGateway(secretKey string, logger ports.Logger) *Gateway {
	return NewGatewayWithClient(stripe.NewClient(secretKey, nil), logger)
}

// NewGatewayWithClient wraps an existing client, e.g. one pointed at stripe-mock
func NewGatewayWithClient(client *stripe.Client, logger ports.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

// Charge confirms a PaymentIntent against the subscriber's saved payment method.
// Card declines and authentication requirements map to ports.ErrChargeDeclined.
func (g *Gateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	if req.CustomerID == "" || req.PaymentMethodID == "" {
		return nil, fmt.Errorf("%w: subscriber %s has no saved payment method", ports.ErrChargeDeclined, req.SubscriberID)
	}

	params := paymentIntentParams(req)

	intent, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			switch stripeErr.Code {
			case stripe.ErrorCodeCardDeclined, stripe.ErrorCodeAuthenticationRequired, stripe.ErrorCodeExpiredCard:
				return nil, fmt.Errorf("%w: %s", ports.ErrChargeDeclined, stripeErr.Msg)
			}
		}

		g.logger.Error("Failed to create PaymentIntent",
			ports.String("subscription_id", req.SubscriptionID),
			ports.String("amount", req.Amount.String()),
			ports.Err(err),
		)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded && intent.Status != stripe.PaymentIntentStatusProcessing {
		return nil, fmt.Errorf("%w: payment intent %s is %s", ports.ErrChargeDeclined, intent.ID, intent.Status)
	}

	return &ports.ChargeResult{
		GatewayTransactionID: intent.ID,
		Status:               string(intent.Status),
		Pending:              intent.Status == stripe.PaymentIntentStatusProcessing,
	}, nil
}

// paymentIntentParams builds an off-session, confirm-now PaymentIntent for req.
// The amount is expressed in the currency's minor unit.
func paymentIntentParams(req ports.ChargeRequest) *stripe.PaymentIntentCreateParams {
	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(domain.ToMinorUnits(req.Amount, req.Currency)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
		Metadata: map[string]string{
			"subscription_id": req.SubscriptionID,
			"subscriber_id":   req.SubscriberID,
			"tenant_id":       req.TenantID,
			"payment_type":    "subscription_renewal",
		},
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	return params
}
