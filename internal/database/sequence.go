package database

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// nextID increments and returns the per-table numeric sequence. The wire
// protocol and the GraphQL schema address entities by integer id, so rows
// carry an explicit numeric id field alongside SurrealDB's record id.
func nextID(ctx context.Context, db *surrealdb.DB, table string) (int, error) {
	type counter struct {
		Value int `json:"value"`
	}

	query := "UPSERT type::thing('sequence', $table) SET value += 1 RETURN AFTER"
	seq, err := QueryOne[counter](ctx, db, query, map[string]any{"table": table})
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	if seq == nil {
		return 0, fmt.Errorf("%s sequence returned no row", table)
	}
	return seq.Value, nil
}
