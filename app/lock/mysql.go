package lock

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"sync"
	"time"
)

// MySQL rejects advisory lock names longer than this.
const mysqlMaxLockName = 64

// MySQLLocker uses GET_LOCK advisory locks. The lock lives as long as the
// session that took it, so each held key pins one pooled connection.
type MySQLLocker struct {
	db    *sql.DB
	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewMySQLLocker constructs a MySQL-based advisory lock manager.
func NewMySQLLocker(db *sql.DB) *MySQLLocker {
	return &MySQLLocker{
		db:    db,
		conns: make(map[string]*sql.Conn),
	}
}

// Acquire takes the advisory lock without waiting. MySQL has no lock expiry;
// ttl is ignored and the lock is dropped with the session on crash.
func (l *MySQLLocker) Acquire(ctx context.Context, key string, _ time.Duration) error {
	l.mu.Lock()
	if _, exists := l.conns[key]; exists {
		l.mu.Unlock()
		return ErrAlreadyHeld
	}
	l.mu.Unlock()

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return err
	}

	var acquired sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", lockName(key)).Scan(&acquired); err != nil {
		_ = conn.Close()
		return err
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		_ = conn.Close()
		return ErrNotAcquired
	}

	l.mu.Lock()
	l.conns[key] = conn
	l.mu.Unlock()
	return nil
}

// Release frees the advisory lock and returns its connection to the pool.
func (l *MySQLLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	conn, ok := l.conns[key]
	if ok {
		delete(l.conns, key)
	}
	l.mu.Unlock()

	if !ok {
		return nil
	}

	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", lockName(key))
	return err
}

func lockName(key string) string {
	if len(key) <= mysqlMaxLockName {
		return key
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
