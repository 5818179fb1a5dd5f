package lock

import (
	"context"
	"errors"
	"time"
)

var ErrAlreadyHeld = errors.New("lock already held by this process")
var ErrNotAcquired = errors.New("lock not acquired")

const emailKeyPrefix = "website:email:"

// Locker guards a message against concurrent delivery by several workers.
type Locker interface {
	// Acquire attempts to lock a key for the given TTL without waiting.
	Acquire(ctx context.Context, key string, ttl time.Duration) error
	// Release frees the lock for the given key.
	Release(ctx context.Context, key string) error
}

// EmailKey returns the lock key for one outgoing message.
func EmailKey(messageID string) string {
	return emailKeyPrefix + messageID
}
