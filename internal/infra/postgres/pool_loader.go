package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-engine/internal/domain"
)

// PoolLoader loads question pools stored as JSONB in Postgres.
type PoolLoader struct {
	pool *pgxpool.Pool
}

func NewPoolLoader(pool *pgxpool.Pool) *PoolLoader {
	return &PoolLoader{pool: pool}
}

func (l *PoolLoader) LoadPool(ctx context.Context, poolID string) (domain.Pool, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_pools WHERE id=$1`, poolID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pool{}, fmt.Errorf("%w: %s", domain.ErrPoolNotFound, poolID)
		}
		return domain.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	var pool domain.Pool
	if err := json.Unmarshal(raw, &pool); err != nil {
		return domain.Pool{}, fmt.Errorf("unmarshal pool: %w", err)
	}
	pool.ID = poolID
	for _, q := range pool.Questions {
		if err := q.Validate(); err != nil {
			return domain.Pool{}, fmt.Errorf("pool %s: %w", poolID, err)
		}
	}
	return pool, nil
}

// SavePool upserts a pool document.
func (l *PoolLoader) SavePool(ctx context.Context, pool domain.Pool) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal pool: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_pools (id, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		pool.ID, string(data))
	if err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}
