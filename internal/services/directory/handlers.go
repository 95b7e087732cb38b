// Package directory answers the subscriber and company lookups other modules send through the mediator.
package directory

import (
	"context"
	"fmt"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/internal/mediator"
)

// Handlers serves GetSubscriberCommand and UserExistsCommand from a Directory
type Handlers struct {
	directory ports.Directory
	logger    ports.Logger
}

// NewHandlers creates the lookup handlers
func NewHandlers(directory ports.Directory, logger ports.Logger) *Handlers {
	return &Handlers{
		directory: directory,
		logger:    logger,
	}
}

// Register binds both lookups on bus
func (h *Handlers) Register(bus *mediator.Bus) error {
	if err := mediator.Handle(bus, h.GetSubscriber); err != nil {
		return err
	}
	return mediator.Handle(bus, h.UserExists)
}

// GetSubscriber returns nil when the subscriber does not exist
func (h *Handlers) GetSubscriber(ctx context.Context, cmd mediator.GetSubscriberCommand) (*domain.Subscriber, error) {
	subscriber, err := h.directory.GetSubscriber(ctx, cmd.SubscriberID)
	if err != nil {
		h.logger.Error("Subscriber lookup failed",
			ports.String("subscriber_id", cmd.SubscriberID),
			ports.Err(err))
		return nil, fmt.Errorf("lookup subscriber %s: %w", cmd.SubscriberID, err)
	}
	return subscriber, nil
}

// UserExists reports whether the company user exists
func (h *Handlers) UserExists(ctx context.Context, cmd mediator.UserExistsCommand) (bool, error) {
	exists, err := h.directory.UserExists(ctx, cmd.UserID)
	if err != nil {
		h.logger.Error("User lookup failed",
			ports.String("user_id", cmd.UserID),
			ports.Err(err))
		return false, fmt.Errorf("lookup user %s: %w", cmd.UserID, err)
	}
	return exists, nil
}
