package queue

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// JSONHandler adapts fn to a router handler for messages named name.
// Messages with another name or an undecodable payload are acked and logged;
// errors returned by fn are redelivered by the router.
func JSONHandler[T any](name string, fn func(ctx context.Context, payload T) error, logger ports.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		if got := msg.Metadata.Get(MetadataName); got != "" && got != name {
			logger.Warn("Dropping message with unexpected name",
				ports.String("message_id", msg.UUID),
				ports.String("name", got),
				ports.String("expected", name))
			return nil
		}

		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Error("Dropping undecodable message",
				ports.String("message_id", msg.UUID),
				ports.String("name", name),
				ports.Err(err))
			return nil
		}

		return fn(msg.Context(), payload)
	}
}
