package ports

import (
	"context"

	"github.com/kevin07696/billing-service/internal/domain"
)

// Directory answers existence lookups owned by the subscriber and company modules
type Directory interface {
	// GetSubscriber returns nil, nil when the subscriber does not exist
	GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error)

	// UserExists reports whether a company user with the given id exists
	UserExists(ctx context.Context, id string) (bool, error)
}
