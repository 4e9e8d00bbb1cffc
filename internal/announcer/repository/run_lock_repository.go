package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLocker keeps two pipeline runs from overlapping. It narrows the window for duplicate
// posts; the ledger's unique key remains the guarantee.
type RunLocker interface {
	// Acquire returns a release func and true when the lock was taken.
	Acquire(ctx context.Context) (func(), bool, error)
}

// NewRedisRunLocker creates a SET NX PX based lock.
func NewRedisRunLocker(client *redis.Client, key string, ttl time.Duration) RunLocker {
	return &redisRunLocker{client: client, key: key, ttl: ttl}
}

type redisRunLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (l *redisRunLocker) Acquire(ctx context.Context) (func(), bool, error) {
	token, err := newLockToken()
	if err != nil {
		return nil, false, err
	}

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The run context may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}

// NewNoopRunLocker always grants the lock.
func NewNoopRunLocker() RunLocker {
	return noopRunLocker{}
}

type noopRunLocker struct{}

func (noopRunLocker) Acquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
