package ports

import (
	"context"
	"errors"

	"github.com/kevin07696/billing-service/internal/domain"
)

// ErrDuplicateCharge is returned when a charge with the same idempotency key is already recorded
var ErrDuplicateCharge = errors.New("charge already recorded for idempotency key")

// ChargeRepository defines the interface for the charge ledger
type ChargeRepository interface {
	// RecordCharge inserts a ledger entry; ErrDuplicateCharge when the key exists
	RecordCharge(ctx context.Context, charge *domain.Charge) error

	// GetChargeByIdempotencyKey returns nil, nil when no charge was recorded
	GetChargeByIdempotencyKey(ctx context.Context, key string) (*domain.Charge, error)
}
