package ports

import (
	"context"

	"github.com/kevin07696/billing-service/internal/domain"
)

// QueueOptions configures one queue handle
type QueueOptions struct {
	// Name is the topic messages are published to
	Name string
	// Attempts is the maximum number of deliveries per message, first one included
	Attempts int
}

// Queue accepts batches of messages for asynchronous processing
type Queue interface {
	// AddMessages publishes the batch; it fails as a whole on the first publish error
	AddMessages(ctx context.Context, messages []domain.QueueMessage) error

	// Close releases the underlying resources. Must be called exactly once.
	Close() error
}

// QueueFactory opens a queue handle per job run
type QueueFactory interface {
	NewQueue(ctx context.Context, opts QueueOptions) (Queue, error)
}
