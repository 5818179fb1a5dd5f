package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// releaseScript deletes the key only when it still carries our token, so an
// expired lock taken over by another worker is left alone.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

type RedisLocker struct {
	client redis.UniversalClient
	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLocker constructs a Redis-based lock manager.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client: client,
		tokens: make(map[string]string),
	}
}

// Acquire sets key with a random ownership token and a TTL.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.tokens[key]; exists {
		return ErrAlreadyHeld
	}

	token, err := ownershipToken()
	if err != nil {
		return err
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}

	l.tokens[key] = token
	return nil
}

// Release frees key if this process still owns it.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	deleted, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		log.WithField("key", key).Warn("lock expired before release")
	}
	return nil
}

func ownershipToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
