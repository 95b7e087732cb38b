package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/samber/lo"
)

const (
	// MetadataName carries domain.QueueMessage.Name
	MetadataName = "name"
	// MetadataAttempts carries the delivery budget of the message
	MetadataAttempts = "attempts"

	defaultAttempts = 1
)

// ErrQueueClosed is returned when publishing through a closed queue
var ErrQueueClosed = errors.New("queue is closed")

// PublisherOpener yields the publisher backing one queue handle.
// The handle closes what the opener returns.
type PublisherOpener func(ctx context.Context) (message.Publisher, error)

// Factory implements ports.QueueFactory on top of watermill publishers
type Factory struct {
	open   PublisherOpener
	logger ports.Logger
}

var _ ports.QueueFactory = (*Factory)(nil)

// NewFactory creates a queue factory
func NewFactory(open PublisherOpener, logger ports.Logger) *Factory {
	return &Factory{open: open, logger: logger}
}

// NewQueue opens a queue handle publishing to opts.Name
func (f *Factory) NewQueue(ctx context.Context, opts ports.QueueOptions) (ports.Queue, error) {
	if opts.Name == "" {
		return nil, errors.New("queue name is required")
	}
	if opts.Attempts < 1 {
		opts.Attempts = defaultAttempts
	}

	publisher, err := f.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open publisher for queue %s: %w", opts.Name, err)
	}

	return &Queue{
		publisher: publisher,
		topic:     opts.Name,
		attempts:  opts.Attempts,
		logger:    f.logger,
	}, nil
}

// Queue publishes domain messages to one watermill topic
type Queue struct {
	publisher message.Publisher
	logger    ports.Logger
	topic     string
	attempts  int

	mu     sync.Mutex
	closed bool
}

// AddMessages publishes the batch in a single Publish call
func (q *Queue) AddMessages(ctx context.Context, messages []domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if len(messages) == 0 {
		return nil
	}

	batch := make([]*message.Message, 0, len(messages))
	for _, m := range messages {
		wm, err := q.toWatermill(ctx, m)
		if err != nil {
			return err
		}
		batch = append(batch, wm)
	}

	if err := q.publisher.Publish(q.topic, batch...); err != nil {
		return fmt.Errorf("publish %d messages to %s: %w", len(batch), q.topic, err)
	}

	q.logger.Debug("Messages published",
		ports.String("topic", q.topic),
		ports.Int("count", len(batch)),
		ports.Any("message_ids", lo.Map(messages, func(m domain.QueueMessage, _ int) string { return m.ID })),
	)
	return nil
}

// Close releases the publisher. Only the first call has an effect.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	return q.publisher.Close()
}

func (q *Queue) toWatermill(ctx context.Context, m domain.QueueMessage) (*message.Message, error) {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal message %s: %w", m.ID, err)
	}

	id := m.ID
	if id == "" {
		id = watermill.NewUUID()
	}

	wm := message.NewMessage(id, payload)
	wm.Metadata.Set(MetadataName, m.Name)
	wm.Metadata.Set(MetadataAttempts, strconv.Itoa(q.attempts))
	wm.SetContext(ctx)
	return wm, nil
}

// SharedPublisher hands the same publisher to every queue handle.
// Closing a handle leaves the shared publisher open.
func SharedPublisher(publisher message.Publisher) PublisherOpener {
	return func(context.Context) (message.Publisher, error) {
		return nopClosePublisher{publisher}, nil
	}
}

type nopClosePublisher struct {
	message.Publisher
}

func (nopClosePublisher) Close() error { return nil }
