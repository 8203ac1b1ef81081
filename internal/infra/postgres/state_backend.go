// Package postgres persists the shared records in an app_state table, one
// JSONB row per key.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StateBackend implements memory.Backend on Postgres.
type StateBackend struct {
	pool *pgxpool.Pool
}

func NewStateBackend(pool *pgxpool.Pool) *StateBackend {
	return &StateBackend{pool: pool}
}

func (b *StateBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT data FROM app_state WHERE key=$1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load state %s: %w", key, err)
	}
	return raw, true, nil
}

func (b *StateBackend) Save(ctx context.Context, key string, value []byte) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO app_state (key, data) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("save state %s: %w", key, err)
	}
	return nil
}

func (b *StateBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM app_state WHERE key=$1`, key); err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}
