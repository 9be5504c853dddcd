package domain

import (
	"context"
	"time"
)

// Post represents a discussion thread. Each live room is keyed by a post id.
type Post struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Content   *string    `json:"content,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Media     []string   `json:"media,omitempty"`
	Stars     int        `json:"stars"`
	ForumID   int        `json:"forum_id"`
	PosterID  int        `json:"poster_id"`
	CreatedAt time.Time  `json:"created_at"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// PostStore resolves posts. The relay only needs it at connect time, to map
// the requested thread onto its owning forum.
type PostStore interface {
	FindByID(ctx context.Context, id int) (*Post, error)
}
