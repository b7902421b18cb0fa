package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vitacare/vitacare/internal/config"
	"github.com/vitacare/vitacare/internal/logger"
	"github.com/vitacare/vitacare/internal/pubsub"
	"github.com/vitacare/vitacare/internal/types"
)

// EventPublisher is the notification-sink side of the lifecycle core: every
// committed transition is published as a WebhookEvent for the external
// notification service to consume.
type EventPublisher interface {
	Publish(ctx context.Context, event *types.WebhookEvent) error
	Close() error
}

type eventPublisher struct {
	pubSub pubsub.PubSub
	config *config.WebhookConfig
	logger *logger.Logger
}

// NewPublisher creates a pubsub-backed event publisher
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) EventPublisher {
	return &eventPublisher{
		pubSub: pubSub,
		config: &cfg.Webhook,
		logger: logger,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *types.WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_name", event.EventName)

	p.logger.Debugw("publishing webhook event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
		"topic", p.config.Topic,
	)

	return p.pubSub.Publish(ctx, p.config.Topic, msg)
}

func (p *eventPublisher) Close() error {
	return p.pubSub.Close()
}
