package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kevin07696/billing-service/internal/adapters/queue"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRouter(t *testing.T, attempts int, handler message.NoPublishHandlerFunc) (*queue.Factory, <-chan *message.Message) {
	t.Helper()

	pubSub := queue.NewMemoryPubSub(watermill.NopLogger{})
	cfg := queue.RouterConfig{
		Attempts:        attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		PoisonTopic:     "poison",
	}

	router, err := queue.NewRouter(cfg, pubSub, watermill.NopLogger{}, mocks.NewMockLogger())
	require.NoError(t, err)
	router.AddHandler("charge", topic, pubSub, handler)

	poisoned, err := pubSub.Subscribe(context.Background(), "poison")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	t.Cleanup(func() {
		cancel()
		_ = router.Close()
		_ = pubSub.Close()
	})

	return queue.NewFactory(queue.SharedPublisher(pubSub), mocks.NewMockLogger()), poisoned
}

// TestRouter_RetriesUntilSuccess tests that a failing handler is redelivered
func TestRouter_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})

	factory, _ := startRouter(t, 3, func(msg *message.Message) error {
		if calls.Add(1) < 3 {
			return errors.New("gateway timeout")
		}
		close(done)
		return nil
	})

	q, err := factory.NewQueue(context.Background(), ports.QueueOptions{Name: topic, Attempts: 3})
	require.NoError(t, err)
	require.NoError(t, q.AddMessages(context.Background(), []domain.QueueMessage{chargeMessage("1")}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never succeeded")
	}
	assert.Equal(t, int32(3), calls.Load())
}

// TestRouter_PoisonAfterAttempts tests that exhausted messages land on the poison topic
func TestRouter_PoisonAfterAttempts(t *testing.T) {
	var calls atomic.Int32

	factory, poisoned := startRouter(t, 2, func(msg *message.Message) error {
		calls.Add(1)
		return errors.New("always failing")
	})

	q, err := factory.NewQueue(context.Background(), ports.QueueOptions{Name: topic, Attempts: 2})
	require.NoError(t, err)
	require.NoError(t, q.AddMessages(context.Background(), []domain.QueueMessage{chargeMessage("42")}))

	msg := receive(t, poisoned)
	assert.Equal(t, "42", msg.UUID)
	assert.Equal(t, int32(2), calls.Load())
}

// TestRouter_MessageAttemptsOverrideRouter tests that the queue's attempts travel with each message
func TestRouter_MessageAttemptsOverrideRouter(t *testing.T) {
	tests := []struct {
		name           string
		routerAttempts int
		queueAttempts  int
	}{
		{"single attempt on a retrying router", 3, 1},
		{"more attempts than the router default", 2, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			factory, poisoned := startRouter(t, tt.routerAttempts, func(msg *message.Message) error {
				calls.Add(1)
				return errors.New("always failing")
			})

			q, err := factory.NewQueue(context.Background(), ports.QueueOptions{Name: topic, Attempts: tt.queueAttempts})
			require.NoError(t, err)
			require.NoError(t, q.AddMessages(context.Background(), []domain.QueueMessage{chargeMessage("7")}))

			msg := receive(t, poisoned)
			assert.Equal(t, "7", msg.UUID)
			assert.Equal(t, int32(tt.queueAttempts), calls.Load())
		})
	}
}
