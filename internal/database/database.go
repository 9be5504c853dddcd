package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/quorum/internal/config"
	"github.com/nfrund/quorum/internal/domain"
)

// Stores bundles the SurrealDB-backed implementations of the domain's
// persistence contracts.
type Stores struct {
	Users    domain.UserStore
	Posts    domain.PostStore
	Comments domain.CommentStore
}

// NewStores wires every store the relay and its HTTP surface depend on
// onto one database connection.
func NewStores(db *surrealdb.DB) *Stores {
	return &Stores{
		Users:    NewSurrealUserStore(db),
		Posts:    NewSurrealPostStore(db),
		Comments: NewSurrealCommentStore(db),
	}
}

// NewDB creates and configures a new SurrealDB connection.
func NewDB(ctx context.Context, cfg *config.Config) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}

	authData := &surrealdb.Auth{
		Username: cfg.DBUser,
		Password: cfg.DBPass,
	}

	if _, err = db.SignIn(ctx, authData); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err = db.Use(ctx, cfg.DBNs, cfg.DBDb); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("Successfully signed in to SurrealDB")
	return db, nil
}
