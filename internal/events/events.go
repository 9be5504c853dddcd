package events

import "github.com/nfrund/quorum/internal/domain"

// Entity identifies which listener set an event fans out to.
type Entity string

const (
	EntityUser    Entity = "user"
	EntityForum   Entity = "forum"
	EntityPost    Entity = "post"
	EntityComment Entity = "comment"
)

// Type tags a domain event with the mutation it describes.
type Type string

const (
	UserCreated    Type = "UserCreated"
	UserUpdated    Type = "UserUpdated"
	ForumCreated   Type = "ForumCreated"
	ForumUpdated   Type = "ForumUpdated"
	PostCreated    Type = "PostCreated"
	PostUpdated    Type = "PostUpdated"
	CommentCreated Type = "CommentCreated"
	CommentUpdated Type = "CommentUpdated"
)

// Event is one coarse-grained domain mutation carrying the full entity
// payload. Exactly one entity field is set, matching the type tag. Events
// are ephemeral: they exist only while being fanned out and are never
// persisted.
type Event struct {
	Type    Type            `json:"type"`
	User    *domain.User    `json:"user,omitempty"`
	Forum   *domain.Forum   `json:"forum,omitempty"`
	Post    *domain.Post    `json:"post,omitempty"`
	Comment *domain.Comment `json:"comment,omitempty"`
}

// Entity returns the listener set this event belongs to.
func (e Event) Entity() Entity {
	switch e.Type {
	case UserCreated, UserUpdated:
		return EntityUser
	case ForumCreated, ForumUpdated:
		return EntityForum
	case PostCreated, PostUpdated:
		return EntityPost
	default:
		return EntityComment
	}
}
