// Package locks provides Redis-backed distributed locks. The matchmaker takes
// one per tick so only a single instance creates matches when several servers
// run against the same database.
package locks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockTimeout occurs when lock acquisition times out
	ErrLockTimeout = errors.New("timeout acquiring lock")
	// ErrLockNotHeld occurs when releasing a lock this instance does not own
	ErrLockNotHeld = errors.New("lock not held by this instance")
	// ErrLockAlreadyHeld occurs when the lock belongs to another instance
	ErrLockAlreadyHeld = errors.New("lock already held by another instance")
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block others
	DefaultLockTTL = 30 * time.Second
	// DefaultAcquireTimeout caps the total time spent retrying acquisition
	DefaultAcquireTimeout = 5 * time.Second
	// DefaultRetryAttempts is the number of acquisition attempts
	DefaultRetryAttempts = 3
)

// LockManager hands out distributed locks keyed on an instance identity
type LockManager struct {
	redis      *redis.Client
	instanceID string
}

// Lock is one held distributed lock
type Lock struct {
	key        string
	value      string
	manager    *LockManager
	acquiredAt time.Time
}

// NewLockManager creates a lock manager with a fresh instance ID
func NewLockManager(redisClient *redis.Client) *LockManager {
	return &LockManager{
		redis:      redisClient,
		instanceID: uuid.New().String(),
	}
}

// AcquireLock acquires a lock atomically with SET NX EX, retrying with
// exponential backoff until DefaultAcquireTimeout
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if ttl == 0 {
		ttl = DefaultLockTTL
	}

	acquireCtx, cancel := context.WithTimeout(ctx, DefaultAcquireTimeout)
	defer cancel()

	lockValue := fmt.Sprintf("%s:%s", lm.instanceID, uuid.New().String())
	lockKey := fmt.Sprintf("lock:%s", key)

	var lastErr error
	for attempt := 0; attempt < DefaultRetryAttempts; attempt++ {
		select {
		case <-acquireCtx.Done():
			return nil, ErrLockTimeout
		default:
		}

		acquired, err := lm.redis.SetNX(acquireCtx, lockKey, lockValue, ttl).Result()
		if err != nil {
			lastErr = fmt.Errorf("redis error: %w", err)
			log.Printf("[LOCK] Redis error on attempt %d/%d for lock %s: %v", attempt+1, DefaultRetryAttempts, lockKey, err)
		} else if acquired {
			return &Lock{
				key:        lockKey,
				value:      lockValue,
				manager:    lm,
				acquiredAt: time.Now(),
			}, nil
		} else {
			lastErr = ErrLockAlreadyHeld
		}

		select {
		case <-acquireCtx.Done():
			return nil, ErrLockTimeout
		case <-time.After(backoff(attempt)):
		}
	}

	log.Printf("[LOCK] ✗ Failed to acquire lock after %d attempts: %s", DefaultRetryAttempts, lockKey)
	if lastErr == nil {
		lastErr = ErrLockTimeout
	}
	return nil, lastErr
}

// Release deletes the lock only if this instance still owns it. The Lua
// script keeps an expired-and-reacquired lock safe from deletion.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return ErrLockNotHeld
	}

	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, l.manager.redis, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == int64(0) {
		log.Printf("[LOCK] Lock %s was not held by this instance (may have expired)", l.key)
		return ErrLockNotHeld
	}

	log.Printf("[LOCK] Released lock %s (held for %v)", l.key, time.Since(l.acquiredAt))
	return nil
}

// backoff returns 500ms, 1s, 2s for successive attempts
func backoff(attempt int) time.Duration {
	d := time.Duration(500*(1<<attempt)) * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}
