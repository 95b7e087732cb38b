package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/billing-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// ChargeActiveSubscriptionMessage routes charge requests to the payment worker
const ChargeActiveSubscriptionMessage = "ChargeActiveSubscription"

// BillingDateLayout is the wire format of billing dates in charge payloads
const BillingDateLayout = "2006-01-02"

// QueueMessage is one unit handed to the asynchronous pipeline
type QueueMessage struct {
	Payload interface{}
	ID      string
	Name    string
}

// ChargePayload carries everything the worker needs to bill one cycle.
// Amount comes from the plan, not the subscription.
type ChargePayload struct {
	Amount         decimal.Decimal `json:"amount"`
	SubscriptionID string          `json:"subscription_id"`
	SubscriberID   string          `json:"subscriber_id"`
	TenantID       string          `json:"tenant_id"`
	Currency       string          `json:"currency"`
	BillingDate    string          `json:"billing_date"`
}

// NewChargeMessage builds the charge message for a subscription due on billingDate
func NewChargeMessage(sub *Subscription, plan *SubscriptionPlan, billingDate time.Time) QueueMessage {
	return QueueMessage{
		ID:   uuid.New().String(),
		Name: ChargeActiveSubscriptionMessage,
		Payload: ChargePayload{
			SubscriptionID: sub.ID,
			SubscriberID:   sub.SubscriberID,
			TenantID:       sub.TenantID,
			Amount:         plan.Amount,
			Currency:       plan.Currency,
			BillingDate:    billingDate.Format(BillingDateLayout),
		},
	}
}

// IdempotencyKey identifies one billing cycle of one subscription
func (p ChargePayload) IdempotencyKey() string {
	return "charge-" + p.SubscriptionID + "-" + p.BillingDate
}

// ChargeStatus is the gateway outcome recorded for one billing cycle
type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	// ChargeStatusPending is an accepted charge whose funds have not settled yet
	ChargeStatusPending  ChargeStatus = "pending"
	ChargeStatusDeclined ChargeStatus = "declined"
)

// Charge is the ledger entry of one gateway charge attempt outcome.
// IdempotencyKey is unique per subscription and billing date.
type Charge struct {
	CreatedAt            time.Time       `json:"created_at"`
	BillingDate          time.Time       `json:"billing_date"`
	Amount               decimal.Decimal `json:"amount"`
	ID                   string          `json:"id"`
	SubscriptionID       string          `json:"subscription_id"`
	SubscriberID         string          `json:"subscriber_id"`
	TenantID             string          `json:"tenant_id"`
	Currency             string          `json:"currency"`
	IdempotencyKey       string          `json:"idempotency_key"`
	Status               ChargeStatus    `json:"status"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	FailureReason        string          `json:"failure_reason,omitempty"`
}

// NewCharge builds a ledger entry for payload with the given outcome
func NewCharge(payload ChargePayload, billingDate time.Time, status ChargeStatus, now time.Time) *Charge {
	return &Charge{
		ID:             uuid.New().String(),
		SubscriptionID: payload.SubscriptionID,
		SubscriberID:   payload.SubscriberID,
		TenantID:       payload.TenantID,
		Amount:         payload.Amount,
		Currency:       payload.Currency,
		BillingDate:    billingDate,
		IdempotencyKey: payload.IdempotencyKey(),
		Status:         status,
		CreatedAt:      now,
	}
}

// IsSucceeded reports whether the cycle was already paid
func (c *Charge) IsSucceeded() bool {
	return c.Status == ChargeStatusSucceeded
}

// IsDeclined reports whether the gateway refused the cycle
func (c *Charge) IsDeclined() bool {
	return c.Status == ChargeStatusDeclined
}

// ParseBillingDate decodes the payload billing date
func (p ChargePayload) ParseBillingDate() (time.Time, error) {
	return timeutil.ParseDate(BillingDateLayout, p.BillingDate)
}
