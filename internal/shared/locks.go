package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DocumentLockKey builds redis keys for per-document critical sections.
func DocumentLockKey(docID uuid.UUID) string {
	return fmt.Sprintf("documents:%s:lock", docID)
}

// ErrLockNotAcquired indicates the lock is held by another caller.
var ErrLockNotAcquired = errors.New("lock not acquired")

// DocumentLocker serialises operations on a single document across processes.
// Concurrent operations on different documents never contend.
type DocumentLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewDocumentLocker constructs a locker. A nil client degrades to no locking,
// which is acceptable only in single-process tests.
func NewDocumentLocker(client *redis.Client, ttl time.Duration) *DocumentLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DocumentLocker{client: client, ttl: ttl, retry: 50 * time.Millisecond}
}

// WithLock runs fn while holding the key. It waits for the lock until the
// context deadline, then gives up with ErrLockNotAcquired.
func (l *DocumentLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("shared: acquire lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ErrLockNotAcquired
		case <-time.After(l.retry):
		}
	}
	defer func() {
		// Release only our own token so an expired lock taken over by another
		// caller is never deleted from under them.
		const release = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.WithoutCancel(ctx), release, []string{key}, token).Err()
	}()
	return fn(ctx)
}
