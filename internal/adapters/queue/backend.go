package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	BackendMemory = "memory"
	BackendKafka  = "kafka"
)

// KafkaConfig holds broker settings for the kafka backend
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

// NewMemoryPubSub creates an in-process pub/sub; messages survive until a subscriber reads them
func NewMemoryPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:          true,
			OutputChannelBuffer: 100,
		},
		logger,
	)
}

// KafkaPublisherOpener opens a dedicated kafka publisher per queue handle
func KafkaPublisherOpener(cfg KafkaConfig, logger watermill.LoggerAdapter) PublisherOpener {
	return func(context.Context) (message.Publisher, error) {
		return NewKafkaPublisher(cfg, logger)
	}
}

// NewKafkaPublisher creates a kafka publisher
func NewKafkaPublisher(cfg KafkaConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   cfg.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return publisher, nil
}

// NewKafkaSubscriber creates a kafka subscriber in cfg.ConsumerGroup
func NewKafkaSubscriber(cfg KafkaConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:       cfg.Brokers,
			ConsumerGroup: cfg.ConsumerGroup,
			Unmarshaler:   kafka.DefaultMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka subscriber: %w", err)
	}
	return subscriber, nil
}
