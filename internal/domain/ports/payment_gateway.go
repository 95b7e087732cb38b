package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrChargeDeclined marks a charge the gateway refused; retrying will not help
var ErrChargeDeclined = errors.New("charge declined by gateway")

// ChargeRequest bills one subscription cycle
type ChargeRequest struct {
	Amount         decimal.Decimal
	IdempotencyKey string
	SubscriptionID string
	SubscriberID   string
	TenantID       string
	Currency       string
	// CustomerID is the subscriber's customer reference at the gateway
	CustomerID      string
	PaymentMethodID string
}

// ChargeResult is the gateway outcome of an accepted charge
type ChargeResult struct {
	GatewayTransactionID string
	Status               string
	// Pending is set when the gateway accepted the charge but funds settle later
	Pending bool
}

// PaymentGateway charges subscribers off-session
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
