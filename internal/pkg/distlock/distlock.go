// Package distlock provides coarse distributed locking so that exactly one
// worker drains the due-email queue or resends a given email at a time.
package distlock

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a non-blocking, single-owner lock.
type Lock interface {
	// TryAcquire attempts to take the lock without blocking.
	TryAcquire(ctx context.Context) (bool, error)
	// Release gives the lock back if this instance still owns it.
	Release(ctx context.Context) error
}

// New picks the best available backend: Redis when a client is provided
// (cross-host), otherwise a Postgres advisory lock on the shared database.
func New(rdb *redis.Client, db *sql.DB, key string, ttl time.Duration) Lock {
	if rdb != nil {
		return NewRedisLock(rdb, key, ttl)
	}
	return NewAdvisoryLock(db, key)
}

// RedisLock locks via SET NX with a TTL and a random ownership token, so an
// expired-and-retaken lock is never released by its previous owner.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRedisLock creates a Redis-backed lock under "lock:<key>".
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &RedisLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		token:  hex.EncodeToString(b),
		ttl:    ttl,
	}
}

// TryAcquire attempts SET NX. Returns true when the lock was taken.
func (l *RedisLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release deletes the key only if this instance's token still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Result()
	return err
}

// AdvisoryLock uses pg_try_advisory_lock, which is session-scoped: the lock
// drops automatically if the DB connection dies, giving crash-safety similar
// to a Redis TTL.
type AdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewAdvisoryLock derives a deterministic lock id from key.
func NewAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &AdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// TryAcquire attempts the advisory lock without blocking.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release unlocks the advisory lock.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
