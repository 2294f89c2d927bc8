package events

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// CacheInvalidator consumes the events topic and runs the registered
// handlers for each event type, so caches of other instances are dropped
// when data changes.
type CacheInvalidator struct {
	subscriber message.Subscriber
	topic      string
	handlers   map[EventType][]func(ctx context.Context) error
	logger     *slog.Logger
}

func NewCacheInvalidator(subscriber message.Subscriber, topic string, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{
		subscriber: subscriber,
		topic:      topic,
		handlers:   make(map[EventType][]func(ctx context.Context) error),
		logger:     logger,
	}
}

// On registers fn for events of type t. Register before Run.
func (ci *CacheInvalidator) On(t EventType, fn func(ctx context.Context) error) {
	ci.handlers[t] = append(ci.handlers[t], fn)
}

// Run consumes until ctx is cancelled or the subscriber is closed.
func (ci *CacheInvalidator) Run(ctx context.Context) error {
	messages, err := ci.subscriber.Subscribe(ctx, ci.topic)
	if err != nil {
		return err
	}
	for msg := range messages {
		ci.handle(msg)
	}
	return nil
}

func (ci *CacheInvalidator) handle(msg *message.Message) {
	defer msg.Ack()

	ev, err := decodeEvent(msg.Payload)
	if err != nil {
		ci.logger.Warn("Skipping malformed event", "message_id", msg.UUID, "error", err)
		return
	}
	for _, fn := range ci.handlers[ev.Type] {
		if err := fn(msg.Context()); err != nil {
			ci.logger.Error("Cache invalidation failed", "type", ev.Type, "event_id", ev.ID, "error", err)
		}
	}
}
