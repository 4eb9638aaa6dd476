package tracking

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// Deduper flags events that look like automated re-fires (mail client
// prefetchers, link scanners) so the consumer can skip the unique-open
// bump while still appending the raw event row.
type Deduper interface {
	// Seen reports whether an equivalent event was already processed in
	// the current window, and marks this one as processed.
	Seen(ctx context.Context, evt Event) bool
}

// RedisDeduper stores event fingerprints in Redis with a TTL. The
// fingerprint buckets by hour, so the same client re-opening an email in a
// later hour counts again.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, evt Event) bool {
	key := "tracking:dedup:" + eventFingerprint(evt)
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis down must not stall the pipeline; treat as unseen.
		logger.Warn("tracking dedup check failed", "error", err)
		return false
	}
	return !ok
}

func eventFingerprint(evt Event) string {
	bucket := evt.Timestamp.UTC().Format("2006010215")
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s:%s:%s", evt.TrackingID, evt.Type, evt.IPAddress, evt.UserAgent, bucket)))
	return fmt.Sprintf("%x", sum)
}

// NopDeduper treats every event as fresh. Used when Redis is not
// configured.
type NopDeduper struct{}

func (NopDeduper) Seen(context.Context, Event) bool { return false }
