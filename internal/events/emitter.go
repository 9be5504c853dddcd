package events

import (
	"context"

	"github.com/nfrund/quorum/internal/domain"
	"github.com/nfrund/quorum/internal/pubsub"
)

// Emitter is the write side of the event pipeline. Mutation code calls it
// after a successful entity write; the event travels over the message bus
// and the Bridge feeds it into the Bus for live subscribers.
type Emitter struct {
	pub pubsub.Publisher
}

// NewEmitter creates an emitter publishing on the given bus.
func NewEmitter(pub pubsub.Publisher) *Emitter {
	return &Emitter{pub: pub}
}

func (e *Emitter) emit(ctx context.Context, event Event) error {
	return pubsub.Publish(ctx, e.pub, topicFor(event), event)
}

// UserCreated announces a new user.
func (e *Emitter) UserCreated(ctx context.Context, u domain.User) error {
	return e.emit(ctx, Event{Type: UserCreated, User: &u})
}

// UserUpdated announces a change to a user's basic fields.
func (e *Emitter) UserUpdated(ctx context.Context, u domain.User) error {
	return e.emit(ctx, Event{Type: UserUpdated, User: &u})
}

// ForumCreated announces a new forum.
func (e *Emitter) ForumCreated(ctx context.Context, f domain.Forum) error {
	return e.emit(ctx, Event{Type: ForumCreated, Forum: &f})
}

// ForumUpdated announces a change to a forum's basic fields.
func (e *Emitter) ForumUpdated(ctx context.Context, f domain.Forum) error {
	return e.emit(ctx, Event{Type: ForumUpdated, Forum: &f})
}

// PostCreated announces a new post.
func (e *Emitter) PostCreated(ctx context.Context, p domain.Post) error {
	return e.emit(ctx, Event{Type: PostCreated, Post: &p})
}

// PostUpdated announces a change to a post's basic fields.
func (e *Emitter) PostUpdated(ctx context.Context, p domain.Post) error {
	return e.emit(ctx, Event{Type: PostUpdated, Post: &p})
}

// CommentCreated announces a new comment. Called by the relay after a
// successful persist, and by the mutation layer for comments created
// outside a live room.
func (e *Emitter) CommentCreated(ctx context.Context, c domain.Comment) error {
	return e.emit(ctx, Event{Type: CommentCreated, Comment: &c})
}

// CommentUpdated announces an edit to a comment.
func (e *Emitter) CommentUpdated(ctx context.Context, c domain.Comment) error {
	return e.emit(ctx, Event{Type: CommentUpdated, Comment: &c})
}
