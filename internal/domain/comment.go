package domain

import (
	"context"
	"time"
)

// Comment is a persisted comment row as returned by the store. The relay
// never mutates one after creation.
type Comment struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	PostID    int        `json:"post_id"`
	ForumID   int        `json:"forum_id"`
	ParentID  *int       `json:"parent_id,omitempty"`
	Content   string     `json:"content"`
	Media     []string   `json:"media,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// NewComment carries the fields needed to create a comment row.
type NewComment struct {
	UserID   int
	PostID   int
	ForumID  int
	ParentID *int
	Content  string
	Media    []string
}

// CommentStore defines the persistence contract the relay depends on when
// a client submits a message to a room.
type CommentStore interface {
	Create(ctx context.Context, nc NewComment) (*Comment, error)
}
