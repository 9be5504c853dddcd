package database

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/quorum/internal/domain"
)

// SurrealPostStore resolves posts. It implements domain.PostStore.
type SurrealPostStore struct {
	db *surrealdb.DB
}

// NewSurrealPostStore creates a post store.
func NewSurrealPostStore(db *surrealdb.DB) *SurrealPostStore {
	return &SurrealPostStore{db: db}
}

// FindByID returns the post with the given numeric id, or domain.ErrNotFound
// when no such post exists.
func (s *SurrealPostStore) FindByID(ctx context.Context, id int) (*domain.Post, error) {
	query := "SELECT * FROM post WHERE id = $id"
	params := map[string]any{"id": id}

	post, err := QueryOne[domain.Post](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to look up post %d: %w", id, err)
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}
	return post, nil
}
