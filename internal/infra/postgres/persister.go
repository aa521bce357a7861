package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Persister stores each collection as one JSONB row in contest_collections.
// The table is created by the migrate command.
type Persister struct {
	pool *pgxpool.Pool
}

func NewPersister(pool *pgxpool.Pool) *Persister {
	return &Persister{pool: pool}
}

func (p *Persister) Save(ctx context.Context, collection string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO contest_collections (name, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`, collection, data)
	if err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}

func (p *Persister) Load(ctx context.Context, collection string, v any) (bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM contest_collections WHERE name=$1`, collection).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", collection, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", collection, err)
	}
	return true, nil
}
