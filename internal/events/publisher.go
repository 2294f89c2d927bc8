package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Config selects the transport. Without brokers events stay in process.
type Config struct {
	KafkaBrokers  []string
	Topic         string
	ConsumerGroup string
}

// Bus holds the publisher and subscriber of the configured transport.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Transport  string
}

// NewBus builds a Kafka bus, or a gochannel bus when no brokers are set.
func NewBus(cfg Config, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) == 0 {
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		return &Bus{Publisher: pubSub, Subscriber: pubSub, Transport: "gochannel"}, nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = EventSource + "-" + watermill.NewShortUUID()
	}
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         group,
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	return &Bus{Publisher: publisher, Subscriber: subscriber, Transport: "kafka"}, nil
}

func (b *Bus) Close() error {
	err := b.Publisher.Close()
	if any(b.Subscriber) != any(b.Publisher) {
		err = errors.Join(err, b.Subscriber.Close())
	}
	return err
}

// WatermillEventPublisher writes events as JSON messages to one topic.
type WatermillEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewEventPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillEventPublisher {
	return &WatermillEventPublisher{publisher: publisher, topic: topic, logger: logger}
}

func (p *WatermillEventPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", string(event.Type))
	msg.Metadata.Set("source", event.Source)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "type", event.Type, "event_id", event.ID, "topic", p.topic)
	return nil
}

// Close is a no-op; the publisher belongs to the Bus.
func (p *WatermillEventPublisher) Close() error { return nil }
