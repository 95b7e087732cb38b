package ports

import (
	"context"

	"github.com/kevin07696/billing-service/internal/domain"
)

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// GetSubscriptions lists subscriptions matching the filter.
	// PageResult is nil unless filter.Page is set.
	GetSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) (*domain.SubscriptionPage, error)

	// GetSubscriptionByID returns nil, nil when the subscription does not exist
	GetSubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error)

	// CreateSubscription inserts a new subscription
	CreateSubscription(ctx context.Context, subscription *domain.Subscription) error

	// UpdateSubscription persists status and lifecycle timestamps
	UpdateSubscription(ctx context.Context, subscription *domain.Subscription) error
}
