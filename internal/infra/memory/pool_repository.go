package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-engine/internal/domain"
)

// PoolLoader fetches a question pool from a backing store (file, Postgres, ...).
type PoolLoader interface {
	LoadPool(ctx context.Context, poolID string) (domain.Pool, error)
}

// PoolRepository caches pools with TTL to avoid repeated loads.
type PoolRepository struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	pool      domain.Pool
	expiresAt time.Time
}

func NewPoolRepository(loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context, poolID string) (domain.Pool, error) {
	if pool, ok := r.lookup(poolID); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(poolID, func() (interface{}, error) {
		if pool, ok := r.lookup(poolID); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadPool(ctx, poolID)
		if err != nil {
			return domain.Pool{}, err
		}

		expiresAt := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.cache[poolID] = cachedPool{pool: pool, expiresAt: expiresAt}
		r.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return domain.Pool{}, err
	}
	return result.(domain.Pool), nil
}

func (r *PoolRepository) lookup(poolID string) (domain.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[poolID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Pool{}, false
	}
	return entry.pool, true
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPoolLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticPoolLoader struct {
	pools map[string]domain.Pool
}

func NewStaticPoolLoader(pools map[string]domain.Pool) *StaticPoolLoader {
	return &StaticPoolLoader{pools: pools}
}

func (l *StaticPoolLoader) LoadPool(_ context.Context, poolID string) (domain.Pool, error) {
	if pool, ok := l.pools[poolID]; ok {
		return pool, nil
	}
	return domain.Pool{}, domain.ErrPoolNotFound
}
