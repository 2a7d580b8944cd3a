package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quiz-engine/internal/domain"
)

// PoolLoader fetches a question pool from a backing store (file, Postgres, ...).
type PoolLoader interface {
	LoadPool(ctx context.Context, poolID string) (domain.Pool, error)
}

// PoolRepository caches whole pools in Redis as JSON and falls back to a loader on cache miss.
// Pools are stored as: SET pool:{poolID} {json} EX ttl
type PoolRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewPoolRepository(client *redis.Client, loader PoolLoader, ttl time.Duration, logger *zap.Logger) *PoolRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context, poolID string) (domain.Pool, error) {
	if pool, ok := r.cached(ctx, poolID); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(poolID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := r.cached(ctx, poolID); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadPool(ctx, poolID)
		if err != nil {
			return domain.Pool{}, err
		}

		data, err := json.Marshal(pool)
		if err != nil {
			return domain.Pool{}, err
		}
		if err := r.client.Set(ctx, r.key(poolID), data, r.ttlWithJitter()).Err(); err != nil {
			// The pool is still usable; only the cache write failed.
			r.logger.Warn("cache pool in redis", zap.String("pool_id", poolID), zap.Error(err))
		}
		return pool, nil
	})
	if err != nil {
		return domain.Pool{}, err
	}
	return result.(domain.Pool), nil
}

// Invalidate drops the cached copy of a pool.
func (r *PoolRepository) Invalidate(ctx context.Context, poolID string) error {
	return r.client.Del(ctx, r.key(poolID)).Err()
}

func (r *PoolRepository) cached(ctx context.Context, poolID string) (domain.Pool, bool) {
	data, err := r.client.Get(ctx, r.key(poolID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("read cached pool", zap.String("pool_id", poolID), zap.Error(err))
		}
		return domain.Pool{}, false
	}
	var pool domain.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		r.logger.Warn("decode cached pool", zap.String("pool_id", poolID), zap.Error(err))
		return domain.Pool{}, false
	}
	return pool, true
}

func (r *PoolRepository) key(poolID string) string {
	return "pool:" + poolID
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
