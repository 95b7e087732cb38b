package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// RouterConfig controls redelivery of failed messages
type RouterConfig struct {
	// Attempts is the total number of deliveries, first one included
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// PoisonTopic receives messages that failed every attempt
	PoisonTopic string
}

// DefaultRouterConfig returns three attempts with a short backoff
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Attempts:        3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		PoisonTopic:     "charge-active-subscription-poison",
	}
}

// Router consumes queue topics and dispatches to handlers
type Router struct {
	router *message.Router
	logger ports.Logger
}

// NewRouter creates a router whose handlers get as many deliveries as the message's
// attempts metadata allows (cfg.Attempts when absent) before the message is moved
// to cfg.PoisonTopic on poisonPublisher
func NewRouter(cfg RouterConfig, poisonPublisher message.Publisher, wmLogger watermill.LoggerAdapter, logger ports.Logger) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonTopic)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,
		middleware.CorrelationID,
		retryByAttempts(cfg, wmLogger, logger),
	)

	return &Router{router: router, logger: logger}, nil
}

// retryByAttempts redelivers a failed message until it used the attempts
// recorded in its metadata, falling back to cfg.Attempts
func retryByAttempts(cfg RouterConfig, wmLogger watermill.LoggerAdapter, logger ports.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			attempts := messageAttempts(msg, cfg.Attempts)
			maxRetries := attempts - 1
			retry := middleware.Retry{
				MaxRetries:      maxRetries,
				InitialInterval: cfg.InitialInterval,
				MaxInterval:     cfg.MaxInterval,
				Multiplier:      2,
				Logger:          wmLogger,
				OnRetryHook: func(retryNum int, delay time.Duration) {
					logger.Info("Retrying message",
						ports.String("message_uuid", msg.UUID),
						ports.Int("retry_number", retryNum),
						ports.Int("max_retries", maxRetries),
						ports.Duration("delay", delay),
					)
				},
			}
			return retry.Middleware(h)(msg)
		}
	}
}

func messageAttempts(msg *message.Message, fallback int) int {
	attempts, err := strconv.Atoi(msg.Metadata.Get(MetadataAttempts))
	if err != nil || attempts < 1 {
		attempts = fallback
	}
	if attempts < 1 {
		return 1
	}
	return attempts
}

// AddHandler consumes topic with handlerFunc
func (r *Router) AddHandler(name, topic string, subscriber message.Subscriber, handlerFunc message.NoPublishHandlerFunc) {
	r.router.AddNoPublisherHandler(name, topic, subscriber, func(msg *message.Message) error {
		err := handlerFunc(msg)
		if err != nil {
			r.logger.Warn("Handler failed",
				ports.String("handler", name),
				ports.String("message_uuid", msg.UUID),
				ports.String("correlation_id", middleware.MessageCorrelationID(msg)),
				ports.Err(err),
			)
		}
		return err
	})
}

// Run blocks until ctx is canceled or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("Starting message router")
	return r.router.Run(ctx)
}

// Running is closed once handlers are subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close stops the router and waits for in-flight handlers
func (r *Router) Close() error {
	r.logger.Info("Closing message router")
	return r.router.Close()
}
