package like

import (
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis, *database.RedisStatus) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	status := database.NewRedisStatus()
	status.Assess(true, "run")
	status.MarkRebuildComplete(true, "run")
	return NewLimiter(rdb, status, max, time.Hour, logger.Nop()), mr, status
}

func TestLimiterCapsWindow(t *testing.T) {
	l, _, _ := newTestLimiter(t, 3)
	ctx := t.Context()
	now := time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		c, err := l.Acquire(ctx, "bob", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		c.Commit()
	}
	_, err := l.Acquire(ctx, "bob", now.Add(5*time.Second))
	require.ErrorIs(t, err, ErrRateLimited)

	// other clients have their own window
	_, err = l.Acquire(ctx, "carol", now)
	require.NoError(t, err)

	// the oldest records fall out of the window
	c, err := l.Acquire(ctx, "bob", now.Add(time.Hour+time.Second))
	require.NoError(t, err)
	c.Commit()
}

func TestLimiterRollbackFreesSlot(t *testing.T) {
	l, mr, _ := newTestLimiter(t, 1)
	ctx := t.Context()
	now := time.Now()

	c, err := l.Acquire(ctx, "bob", now)
	require.NoError(t, err)
	c.Rollback(ctx)
	members, err := mr.ZMembers(limiterKeyPrefix + "bob")
	if err == nil {
		assert.Empty(t, members)
	}

	c, err = l.Acquire(ctx, "bob", now)
	require.NoError(t, err)
	c.Commit()
	c.Rollback(ctx)
	_, err = l.Acquire(ctx, "bob", now)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestLimiterFailsOpen(t *testing.T) {
	disabled := NewLimiter(nil, nil, 1, time.Hour, logger.Nop())
	c, err := disabled.Acquire(t.Context(), "bob", time.Now())
	require.NoError(t, err)
	assert.Nil(t, c)
	c.Commit()
	c.Rollback(t.Context())

	l, _, status := newTestLimiter(t, 1)
	status.RequestRebuild()
	for i := 0; i < 3; i++ {
		c, err := l.Acquire(t.Context(), "bob", time.Now())
		require.NoError(t, err)
		assert.Nil(t, c)
	}
}
