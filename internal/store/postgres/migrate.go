package postgres

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Migrate creates any missing tables. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
