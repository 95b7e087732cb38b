package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

const uniqueViolation = "23505"

// ChargeRepository implements ports.ChargeRepository using pgx
type ChargeRepository struct {
	db ports.DBTX
}

// NewChargeRepository creates a new charge ledger repository
func NewChargeRepository(db ports.DBTX) *ChargeRepository {
	return &ChargeRepository{db: db}
}

// RecordCharge inserts a ledger entry
func (r *ChargeRepository) RecordCharge(ctx context.Context, charge *domain.Charge) error {
	chargeID, err := mustUUID("charge ID", charge.ID)
	if err != nil {
		return err
	}
	subID, err := mustUUID("subscription ID", charge.SubscriptionID)
	if err != nil {
		return err
	}
	subscriberID, err := mustUUID("subscriber ID", charge.SubscriberID)
	if err != nil {
		return err
	}
	tenantID, err := mustUUID("tenant ID", charge.TenantID)
	if err != nil {
		return err
	}
	amount, err := decimalToNumeric(charge.Amount)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO charges (
			id, subscription_id, subscriber_id, tenant_id, amount, currency,
			billing_date, idempotency_key, status, gateway_transaction_id,
			failure_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		chargeID, subID, subscriberID, tenantID, amount, charge.Currency,
		nullDate(&charge.BillingDate),
		charge.IdempotencyKey,
		string(charge.Status),
		nullText(charge.GatewayTransactionID),
		nullText(charge.FailureReason),
		charge.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ports.ErrDuplicateCharge
		}
		return fmt.Errorf("record charge: %w", err)
	}
	return nil
}

// GetChargeByIdempotencyKey retrieves a charge by its idempotency key
func (r *ChargeRepository) GetChargeByIdempotencyKey(ctx context.Context, key string) (*domain.Charge, error) {
	var (
		charge        domain.Charge
		amount        pgtype.Numeric
		billingDate   pgtype.Date
		status        string
		gatewayTxnID  pgtype.Text
		failureReason pgtype.Text
	)

	err := r.db.QueryRow(ctx, `
		SELECT id::text, subscription_id::text, subscriber_id::text, tenant_id::text,
		       amount, currency, billing_date, idempotency_key, status,
		       gateway_transaction_id, failure_reason, created_at
		FROM charges WHERE idempotency_key = $1`, key,
	).Scan(
		&charge.ID,
		&charge.SubscriptionID,
		&charge.SubscriberID,
		&charge.TenantID,
		&amount,
		&charge.Currency,
		&billingDate,
		&charge.IdempotencyKey,
		&status,
		&gatewayTxnID,
		&failureReason,
		&charge.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get charge by idempotency key: %w", err)
	}

	charge.Amount, err = pgNumericToDecimal(amount)
	if err != nil {
		return nil, err
	}
	if d := datePtr(billingDate); d != nil {
		charge.BillingDate = *d
	}
	charge.Status = domain.ChargeStatus(status)
	charge.GatewayTransactionID = gatewayTxnID.String
	charge.FailureReason = failureReason.String
	charge.CreatedAt = charge.CreatedAt.UTC()
	return &charge, nil
}
