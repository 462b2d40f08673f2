// Package redislock provides a single-holder lock in Redis used to keep one
// batch accrual running across all service instances.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultKey is the Redis key guarding batch accrual
const DefaultKey = "kredo:accrual:run-lock"

// releaseScript deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a SET NX lock with a TTL so a crashed holder cannot block runs forever
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewClient creates a Redis client from a redis:// URL
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

// New creates a lock on key held for at most ttl
func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = DefaultKey
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock, returning ok=false when someone else holds it
func (l *Lock) Acquire(ctx context.Context) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if token still owns it. An expired or stolen lock is left alone.
func (l *Lock) Release(ctx context.Context, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
}
