package events

import (
	"context"
	"log/slog"
)

// subscriberQueueSize is the capacity of each subscriber's private queue.
const subscriberQueueSize = 100

// Subscriber represents a single client listening for one entity type's
// domain events. It owns the bounded channel the bus pushes into.
type Subscriber struct {
	entity Entity

	// events is the subscriber's private queue. The bus closes it when the
	// subscriber is removed, whether by Unsubscribe or by eviction.
	events chan Event

	// forums, when non-nil, restricts delivered comment events to the
	// forums in the set. Only meaningful for EntityComment subscribers.
	forums map[int]struct{}
}

// NewSubscriber creates a subscriber for one entity type.
func NewSubscriber(entity Entity) *Subscriber {
	return &Subscriber{
		entity: entity,
		events: make(chan Event, subscriberQueueSize),
	}
}

// NewCommentSubscriber creates a comment-event subscriber that only
// receives events for the given forums.
func NewCommentSubscriber(forumIDs []int) *Subscriber {
	forums := make(map[int]struct{}, len(forumIDs))
	for _, id := range forumIDs {
		forums[id] = struct{}{}
	}
	s := NewSubscriber(EntityComment)
	s.forums = forums
	return s
}

// Events returns the subscriber's receive channel. It is closed by the bus
// once the subscriber is removed.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// wants reports whether the subscriber's filter accepts the event.
func (s *Subscriber) wants(e Event) bool {
	if s.forums == nil || e.Comment == nil {
		return true
	}
	_, ok := s.forums[e.Comment.ForumID]
	return ok
}

// Bus is the coarse-grained pub/sub fan-out for domain events, independent
// of room membership. A single Run goroutine owns the listener sets; all
// other code talks to it through channels, so subscriptions never race.
type Bus struct {
	subscribe   chan *Subscriber
	unsubscribe chan *Subscriber
	publish     chan Event

	listeners map[Entity]map[*Subscriber]struct{}
	done      chan struct{}
}

// NewBus creates an event bus with an empty listener set per entity type.
func NewBus() *Bus {
	return &Bus{
		subscribe:   make(chan *Subscriber),
		unsubscribe: make(chan *Subscriber),
		publish:     make(chan Event),
		listeners: map[Entity]map[*Subscriber]struct{}{
			EntityUser:    make(map[*Subscriber]struct{}),
			EntityForum:   make(map[*Subscriber]struct{}),
			EntityPost:    make(map[*Subscriber]struct{}),
			EntityComment: make(map[*Subscriber]struct{}),
		},
		done: make(chan struct{}),
	}
}

// Run starts the bus loop. It must be run in its own goroutine and exits
// when ctx is canceled.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case sub := <-b.subscribe:
			b.listeners[sub.entity][sub] = struct{}{}
			slog.Debug("Event subscriber registered", "entity", sub.entity, "total", len(b.listeners[sub.entity]))

		case sub := <-b.unsubscribe:
			b.remove(sub)

		case event := <-b.publish:
			set := b.listeners[event.Entity()]
			for sub := range set {
				if !sub.wants(event) {
					continue
				}
				select {
				case sub.events <- event:
				default:
					// Queue full means the subscriber stopped draining.
					// Evicted rather than blocking the publisher.
					b.remove(sub)
					slog.Warn("Evicting slow event subscriber", "entity", sub.entity)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// remove deletes a subscriber from its listener set and closes its queue.
// Removing an absent subscriber is a no-op.
func (b *Bus) remove(sub *Subscriber) {
	set := b.listeners[sub.entity]
	if _, ok := set[sub]; ok {
		delete(set, sub)
		close(sub.events)
	}
}

// Subscribe adds a subscriber to its entity type's listener set.
// Subscribing an already present subscriber is a no-op.
func (b *Bus) Subscribe(sub *Subscriber) {
	select {
	case b.subscribe <- sub:
	case <-b.done:
	}
}

// Unsubscribe removes a subscriber and closes its queue. Idempotent.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	select {
	case b.unsubscribe <- sub:
	case <-b.done:
	}
}

// Publish fans an event out to every subscriber of its entity type.
// Delivery is push-only and fire-and-forget.
func (b *Bus) Publish(event Event) {
	select {
	case b.publish <- event:
	case <-b.done:
	}
}
