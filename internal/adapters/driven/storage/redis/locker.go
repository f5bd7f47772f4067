package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block a session.
	// It must outlast one turn including model retries.
	DefaultLockTTL = 30 * time.Second

	// lockKeyPrefix keeps lock keys outside the session key space.
	lockKeyPrefix = "lock:"

	lockRetryInterval = 20 * time.Millisecond
	unlockTimeout     = 2 * time.Second
)

// releaseScript deletes the lock only while it still carries the holder's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Ensure SessionLocker implements the interface.
var _ driven.SessionLocker = (*SessionLocker)(nil)

// SessionLocker is a Redis lease lock per session: SET NX PX with a random
// token, released by a compare-and-delete script.
type SessionLocker struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewSessionLocker creates a locker for sessions stored under prefix.
// A non-positive ttl uses DefaultLockTTL.
func NewSessionLocker(client goredis.UniversalClient, prefix string, ttl time.Duration) *SessionLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &SessionLocker{client: client, prefix: prefix, ttl: ttl, retry: lockRetryInterval}
}

// Locker returns a locker sharing the store's client and key prefix.
func (s *SessionStore) Locker(ttl time.Duration) *SessionLocker {
	return NewSessionLocker(s.client, s.prefix, ttl)
}

func (l *SessionLocker) key(id string) string {
	return lockKeyPrefix + l.prefix + id
}

// TryLock takes the lock for session id if it is free.
func (l *SessionLocker) TryLock(ctx context.Context, id string) (func(), bool, error) {
	key := l.key(id)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis: lock session %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	return l.unlocker(key, token), true, nil
}

// Lock polls until the lock for session id is taken or ctx is done.
func (l *SessionLocker) Lock(ctx context.Context, id string) (func(), error) {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		unlock, ok, err := l.TryLock(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis: lock session %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *SessionLocker) unlocker(key, token string) func() {
	return func() {
		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			logger.Warn("Failed to release session lock %s: %v", key, err)
		}
	}
}
