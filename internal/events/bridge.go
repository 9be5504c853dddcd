package events

import (
	"context"
	"fmt"

	"github.com/nfrund/quorum/internal/pubsub"
)

// Bridge consumes domain events off the message bus and feeds them into
// the in-process Bus. It decouples publishers (the relay, the mutation
// layer) from subscription fan-out: neither side knows about the other,
// both only see their end of the pipeline.
type Bridge struct {
	sub pubsub.Subscriber
	bus *Bus
}

// NewBridge wires a subscriber to a bus.
func NewBridge(sub pubsub.Subscriber, bus *Bus) *Bridge {
	return &Bridge{sub: sub, bus: bus}
}

// Start subscribes to all four event topics. Subscriptions run until ctx
// is canceled.
func (b *Bridge) Start(ctx context.Context) error {
	topics := []string{
		TopicUserEvents,
		TopicForumEvents,
		TopicPostEvents,
		TopicCommentEvents,
	}
	for _, topic := range topics {
		if err := b.sub.Subscribe(ctx, topic, b.forward); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	return nil
}

func (b *Bridge) forward(ctx context.Context, msg pubsub.Message) error {
	event, err := pubsub.Decode[Event](msg)
	if err != nil {
		return fmt.Errorf("failed to decode event on %s: %w", msg.Topic, err)
	}
	b.bus.Publish(event)
	return nil
}
