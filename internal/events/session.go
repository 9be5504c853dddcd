package events

import "context"

// The stream constructors below are the subscription surface consumed by
// the GraphQL layer: each registers a subscriber on creation, forwards bus
// events for as long as the caller's context lives, and unregisters on the
// way out. The returned channel closes when the subscription ends, whether
// by cancellation or by slow-consumer eviction.

// UserEvents streams user domain events until ctx is canceled.
func (b *Bus) UserEvents(ctx context.Context) <-chan Event {
	return b.stream(ctx, NewSubscriber(EntityUser))
}

// ForumEvents streams forum domain events until ctx is canceled.
func (b *Bus) ForumEvents(ctx context.Context) <-chan Event {
	return b.stream(ctx, NewSubscriber(EntityForum))
}

// PostEvents streams post domain events until ctx is canceled.
func (b *Bus) PostEvents(ctx context.Context) <-chan Event {
	return b.stream(ctx, NewSubscriber(EntityPost))
}

// CommentEvents streams comment domain events for the given forums until
// ctx is canceled. Events for forums outside the set are silently dropped.
func (b *Bus) CommentEvents(ctx context.Context, forumIDs []int) <-chan Event {
	return b.stream(ctx, NewCommentSubscriber(forumIDs))
}

func (b *Bus) stream(ctx context.Context, sub *Subscriber) <-chan Event {
	b.Subscribe(sub)
	go func() {
		<-ctx.Done()
		// Unsubscribe is idempotent, so this is safe even if the bus
		// already evicted the subscriber.
		b.Unsubscribe(sub)
	}()
	return sub.Events()
}
