package ports

import (
	"context"

	"github.com/kevin07696/billing-service/internal/domain"
)

// SubscriptionPlanRepository defines the interface for plan persistence
type SubscriptionPlanRepository interface {
	// GetSubscriptionPlansByIDs loads many plans in one round trip. Unknown ids are skipped.
	GetSubscriptionPlansByIDs(ctx context.Context, ids []string) ([]*domain.SubscriptionPlan, error)

	// GetSubscriptionPlanByID returns nil, nil when the plan does not exist
	GetSubscriptionPlanByID(ctx context.Context, id string) (*domain.SubscriptionPlan, error)

	// CreateSubscriptionPlan inserts a new plan
	CreateSubscriptionPlan(ctx context.Context, plan *domain.SubscriptionPlan) error

	// UpdateSubscriptionPlan persists the billing date and plan attributes
	UpdateSubscriptionPlan(ctx context.Context, plan *domain.SubscriptionPlan) error
}
