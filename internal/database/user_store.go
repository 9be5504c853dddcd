package database

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/quorum/internal/domain"
)

// SurrealUserStore resolves users at connection-upgrade time. It implements
// domain.UserStore.
type SurrealUserStore struct {
	db *surrealdb.DB
}

// NewSurrealUserStore creates a user store.
func NewSurrealUserStore(db *surrealdb.DB) *SurrealUserStore {
	return &SurrealUserStore{db: db}
}

// FindByUsername returns the user with the given username, or
// domain.ErrNotFound when no such user exists.
func (s *SurrealUserStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := "SELECT * FROM user WHERE username = $username"
	params := map[string]any{"username": username}

	user, err := QueryOne[domain.User](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", username, err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}
