package database

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/quorum/internal/domain"
)

// SurrealCommentStore persists comments in SurrealDB. It implements
// domain.CommentStore for the relay.
type SurrealCommentStore struct {
	db *surrealdb.DB
}

// NewSurrealCommentStore creates a comment store.
func NewSurrealCommentStore(db *surrealdb.DB) *SurrealCommentStore {
	return &SurrealCommentStore{db: db}
}

// Create inserts a new comment row and returns it with the assigned id and
// creation timestamp.
func (s *SurrealCommentStore) Create(ctx context.Context, nc domain.NewComment) (*domain.Comment, error) {
	id, err := nextID(ctx, s.db, "comment")
	if err != nil {
		return nil, err
	}

	query := `CREATE comment CONTENT {
		id: $id,
		user_id: $user_id,
		post_id: $post_id,
		forum_id: $forum_id,
		parent_id: $parent_id,
		content: $content,
		media: $media,
		created_at: time::now(),
		edited: false
	} RETURN AFTER`
	params := map[string]any{
		"id":        id,
		"user_id":   nc.UserID,
		"post_id":   nc.PostID,
		"forum_id":  nc.ForumID,
		"parent_id": nc.ParentID,
		"content":   nc.Content,
		"media":     nc.Media,
	}

	created, err := QueryOne[domain.Comment](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("comment was not created")
	}
	return created, nil
}
