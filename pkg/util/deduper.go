package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper suppresses duplicate work best-effort via redis SetNX. It is
// fail-open: if redis is unavailable the work is allowed through, because
// correctness always rests on the idempotent upsert, not on this lock.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to acquire a dedup lock for a given scope + user.
// Returns true if this caller is first within the TTL window.
func (d *Deduper) AcquireOnce(ctx context.Context, scope string, userID int) bool {
	key := fmt.Sprintf("dedup:%s:%d", scope, userID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("scope", scope),
				zap.Int("user_id", userID),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated trigger",
			zap.String("scope", scope),
			zap.Int("user_id", userID),
			zap.String("dedup_key", key),
		)
	}

	return ok
}
