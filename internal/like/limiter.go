package like

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned by Acquire once a client used up its window.
var ErrRateLimited = errors.New("too many like toggles, try again later")

const limiterKeyPrefix = "season:likes:client:"

// Limiter caps like toggles per client over a sliding window, one sorted
// set per client scored by toggle time. It lets everything through while
// Redis is disabled or not healthy.
type Limiter struct {
	rdb    *redis.Client
	status *database.RedisStatus
	max    int64
	window time.Duration
	log    *logger.Logger
}

// NewLimiter returns a limiter allowing max toggles per window. A nil rdb or
// a non-positive max disables it.
func NewLimiter(rdb *redis.Client, status *database.RedisStatus, max int, window time.Duration, log *logger.Logger) *Limiter {
	return &Limiter{rdb: rdb, status: status, max: int64(max), window: window, log: log}
}

func (l *Limiter) enabled() bool {
	return l != nil && l.rdb != nil && l.max > 0 && l.window > 0
}

// Acquire records one toggle for clientID at now. The returned Compensator
// removes the record again unless Commit is called, so a toggle that never
// reached the store does not count. It is nil when nothing was recorded.
func (l *Limiter) Acquire(ctx context.Context, clientID string, now time.Time) (*Compensator, error) {
	if !l.enabled() || !l.status.IsRedisHealthy() {
		return nil, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate limiter member: %w", err)
	}
	member := id.String()
	key := limiterKeyPrefix + clientID
	floor := strconv.FormatInt(now.Add(-l.window).UnixMicro(), 10)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+floor)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, key, l.window+time.Minute)
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		// the limiter never blocks likes on its own failure
		l.log.Warn("like limiter unavailable", "clientID", clientID, "error", err)
		return nil, nil
	}

	c := &Compensator{l: l, key: key, member: member}
	if countCmd.Val() > l.max {
		c.Rollback(ctx)
		return nil, ErrRateLimited
	}
	return c, nil
}

// Compensator undoes one Acquire. Both methods accept a nil receiver.
type Compensator struct {
	l         *Limiter
	key       string
	member    string
	committed bool
}

// Commit keeps the record.
func (c *Compensator) Commit() {
	if c != nil {
		c.committed = true
	}
}

// Rollback removes the record unless it was committed. Meant for defer.
func (c *Compensator) Rollback(ctx context.Context) {
	if c == nil || c.committed {
		return
	}
	c.committed = true
	if err := c.l.rdb.ZRem(ctx, c.key, c.member).Err(); err != nil {
		c.l.log.Warn("like limiter rollback failed", "key", c.key, "error", err)
	}
}
