package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/kevin07696/billing-service/pkg/observability"
	"github.com/kevin07696/billing-service/pkg/timeutil"
)

// ChargeWorker charges one billing cycle per message and renews the subscription.
// A nil return acks the message; an error asks for redelivery.
type ChargeWorker struct {
	charges  ports.ChargeRepository
	gateway  ports.PaymentGateway
	mediator mediator.Mediator
	logger   ports.Logger
	clock    ports.Clock
}

// NewChargeWorker creates the worker
func NewChargeWorker(
	charges ports.ChargeRepository,
	gateway ports.PaymentGateway,
	m mediator.Mediator,
	logger ports.Logger,
) *ChargeWorker {
	return &ChargeWorker{
		charges:  charges,
		gateway:  gateway,
		mediator: m,
		logger:   logger,
		clock:    timeutil.Now,
	}
}

// Process handles one ChargeActiveSubscription payload
func (w *ChargeWorker) Process(ctx context.Context, payload domain.ChargePayload) error {
	billingDate, err := payload.ParseBillingDate()
	if err != nil || payload.SubscriptionID == "" {
		w.logger.Error("Dropping charge message with invalid payload",
			ports.String("subscription_id", payload.SubscriptionID),
			ports.String("billing_date", payload.BillingDate),
			ports.Err(err))
		return nil
	}

	key := payload.IdempotencyKey()
	existing, err := w.charges.GetChargeByIdempotencyKey(ctx, key)
	if err != nil {
		return fmt.Errorf("lookup charge %s: %w", key, err)
	}
	if existing != nil {
		if existing.IsDeclined() {
			w.logger.Info("Billing cycle already declined",
				ports.String("subscription_id", payload.SubscriptionID),
				ports.String("idempotency_key", key))
			return nil
		}
		observability.RecordSubscriptionCharge(payload.TenantID, "duplicate", 0, payload.Currency)
		return w.renew(ctx, payload, billingDate)
	}

	subscriber, err := mediator.Send[*domain.Subscriber](ctx, w.mediator, mediator.GetSubscriberCommand{SubscriberID: payload.SubscriberID})
	if err != nil {
		return fmt.Errorf("get subscriber: %w", err)
	}
	if subscriber == nil {
		w.logger.Error("Dropping charge for unknown subscriber",
			ports.String("subscription_id", payload.SubscriptionID),
			ports.String("subscriber_id", payload.SubscriberID))
		return nil
	}

	result, err := w.gateway.Charge(ctx, ports.ChargeRequest{
		Amount:          payload.Amount,
		IdempotencyKey:  key,
		SubscriptionID:  payload.SubscriptionID,
		SubscriberID:    payload.SubscriberID,
		TenantID:        payload.TenantID,
		Currency:        payload.Currency,
		CustomerID:      subscriber.GatewayCustomerID,
		PaymentMethodID: subscriber.GatewayPaymentMethodID,
	})
	if errors.Is(err, ports.ErrChargeDeclined) {
		return w.recordDeclined(ctx, payload, billingDate, err)
	}
	if err != nil {
		observability.RecordSubscriptionCharge(payload.TenantID, "failed", 0, payload.Currency)
		w.logger.Warn("Charge attempt failed",
			ports.String("subscription_id", payload.SubscriptionID),
			ports.String("idempotency_key", key),
			ports.Err(err))
		return fmt.Errorf("charge subscription %s: %w", payload.SubscriptionID, err)
	}

	// Pending charges renew like paid ones; the ledger keeps them apart until settlement.
	status := domain.ChargeStatusSucceeded
	if result.Pending {
		status = domain.ChargeStatusPending
	}
	charge := domain.NewCharge(payload, billingDate, status, w.clock())
	charge.GatewayTransactionID = result.GatewayTransactionID
	// A failed write is redelivered; the gateway dedups on the same key.
	if err := w.charges.RecordCharge(ctx, charge); err != nil && !errors.Is(err, ports.ErrDuplicateCharge) {
		return fmt.Errorf("record charge %s: %w", key, err)
	}

	observability.RecordSubscriptionCharge(payload.TenantID, string(status), domain.ToMinorUnits(payload.Amount, payload.Currency), payload.Currency)
	w.logger.Info("Subscription charged",
		ports.String("subscription_id", payload.SubscriptionID),
		ports.String("gateway_transaction_id", result.GatewayTransactionID),
		ports.String("amount", payload.Amount.String()),
		ports.String("currency", payload.Currency),
		ports.String("status", string(status)))

	return w.renew(ctx, payload, billingDate)
}

func (w *ChargeWorker) recordDeclined(ctx context.Context, payload domain.ChargePayload, billingDate time.Time, cause error) error {
	charge := domain.NewCharge(payload, billingDate, domain.ChargeStatusDeclined, w.clock())
	charge.FailureReason = cause.Error()
	if err := w.charges.RecordCharge(ctx, charge); err != nil && !errors.Is(err, ports.ErrDuplicateCharge) {
		return fmt.Errorf("record declined charge %s: %w", charge.IdempotencyKey, err)
	}

	observability.RecordSubscriptionCharge(payload.TenantID, string(domain.ChargeStatusDeclined), 0, payload.Currency)
	w.logger.Warn("Subscription charge declined",
		ports.String("subscription_id", payload.SubscriptionID),
		ports.String("idempotency_key", charge.IdempotencyKey),
		ports.Err(cause))
	return nil
}

// renew closes the billing cycle. A subscription that left ACTIVE or vanished
// after the charge keeps the charge and is not renewed.
func (w *ChargeWorker) renew(ctx context.Context, payload domain.ChargePayload, billingDate time.Time) error {
	_, err := mediator.Send[*domain.Subscription](ctx, w.mediator, mediator.RenewSubscriptionCommand{
		SubscriptionID: payload.SubscriptionID,
		BillingDate:    billingDate,
	})
	if err == nil {
		return nil
	}

	if domain.IsNotFound(err) || domain.HasCode(err, domain.ErrorCodeSubscriptionNotActive) {
		w.logger.Warn("Charged subscription not renewed",
			ports.String("subscription_id", payload.SubscriptionID),
			ports.String("billing_date", payload.BillingDate),
			ports.Err(err))
		return nil
	}
	return fmt.Errorf("renew subscription %s: %w", payload.SubscriptionID, err)
}
