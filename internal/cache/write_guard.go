package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// requestPending marks an idempotency key whose request is still running.
const requestPending = "pending"

// RedisWriteGuard serializes product writes per key and remembers the outcome
// of client request ids.
type RedisWriteGuard struct {
	redis          *RedisClient
	lockTTL        time.Duration
	idempotencyTTL time.Duration
}

// NewRedisWriteGuard creates a new RedisWriteGuard.
func NewRedisWriteGuard(redis *RedisClient, lockTTL, idempotencyTTL time.Duration) *RedisWriteGuard {
	return &RedisWriteGuard{redis: redis, lockTTL: lockTTL, idempotencyTTL: idempotencyTTL}
}

func (g *RedisWriteGuard) keyLock(key string) string {
	return fmt.Sprintf("lock:product:%s", key)
}

func (g *RedisWriteGuard) keyRequest(requestID string) string {
	return fmt.Sprintf("idempotency:product:%s", requestID)
}

// Lock takes the write lock for key. The returned func releases it.
func (g *RedisWriteGuard) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := g.keyLock(key)
	value := uuid.New().String()
	ok, err := g.redis.AcquireLock(ctx, lockKey, value, g.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire write lock: %w", err)
	}
	if !ok {
		return nil, utils.ConflictError("WRITE_IN_PROGRESS", "another write for %s is in progress", key)
	}
	return func() {
		// Release must not depend on the caller's possibly cancelled context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.redis.ReleaseLock(ctx, lockKey, value); err != nil {
			log.Warn().Err(err).Str("key", lockKey).Msg("Failed to release write lock")
		}
	}, nil
}

// Begin claims requestID. It returns the product id of a completed earlier
// request with the same id, or "" when the caller should proceed.
func (g *RedisWriteGuard) Begin(ctx context.Context, requestID string) (string, error) {
	key := g.keyRequest(requestID)
	ok, err := g.redis.SetNX(ctx, key, requestPending, g.idempotencyTTL)
	if err != nil {
		return "", fmt.Errorf("claim request id: %w", err)
	}
	if ok {
		return "", nil
	}
	existing, err := g.redis.Get(ctx, key)
	if err != nil && !IsMiss(err) {
		return "", err
	}
	if existing == requestPending || existing == "" {
		return "", utils.ConflictError("REQUEST_IN_PROGRESS", "request %s is already being processed", requestID)
	}
	return existing, nil
}

// Complete records the product created for requestID.
func (g *RedisWriteGuard) Complete(ctx context.Context, requestID, productID string) error {
	return g.redis.Set(ctx, g.keyRequest(requestID), productID, g.idempotencyTTL)
}

// Abort forgets requestID so the client may retry it.
func (g *RedisWriteGuard) Abort(ctx context.Context, requestID string) error {
	return g.redis.Delete(ctx, g.keyRequest(requestID))
}

// MemoryWriteGuard is the in-process write guard used when Redis is disabled.
// It only serializes writes within one process.
type MemoryWriteGuard struct {
	mu             sync.Mutex
	locks          map[string]time.Time
	requests       map[string]memoryRequest
	lockTTL        time.Duration
	idempotencyTTL time.Duration
	now            func() time.Time
}

type memoryRequest struct {
	productID string
	expires   time.Time
}

// NewMemoryWriteGuard creates a new MemoryWriteGuard.
func NewMemoryWriteGuard(lockTTL, idempotencyTTL time.Duration) *MemoryWriteGuard {
	return &MemoryWriteGuard{
		locks:          make(map[string]time.Time),
		requests:       make(map[string]memoryRequest),
		lockTTL:        lockTTL,
		idempotencyTTL: idempotencyTTL,
		now:            time.Now,
	}
}

func (g *MemoryWriteGuard) Lock(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, held := g.locks[key]; held && now.Before(exp) {
		return nil, utils.ConflictError("WRITE_IN_PROGRESS", "another write for %s is in progress", key)
	}
	exp := now.Add(g.lockTTL)
	g.locks[key] = exp
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.locks[key].Equal(exp) {
			delete(g.locks, key)
		}
	}, nil
}

func (g *MemoryWriteGuard) Begin(_ context.Context, requestID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if r, ok := g.requests[requestID]; ok && now.Before(r.expires) {
		if r.productID == requestPending {
			return "", utils.ConflictError("REQUEST_IN_PROGRESS", "request %s is already being processed", requestID)
		}
		return r.productID, nil
	}
	g.requests[requestID] = memoryRequest{productID: requestPending, expires: now.Add(g.idempotencyTTL)}
	return "", nil
}

func (g *MemoryWriteGuard) Complete(_ context.Context, requestID, productID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests[requestID] = memoryRequest{productID: productID, expires: g.now().Add(g.idempotencyTTL)}
	return nil
}

func (g *MemoryWriteGuard) Abort(_ context.Context, requestID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.requests, requestID)
	return nil
}
