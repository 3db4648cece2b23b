// Package health watches Redis and rebuilds the rank index whenever it
// comes back from an outage or a restart.
package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultInterval = 5 * time.Second
	probeTimeout    = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Rebuilder reloads the rank index from the store.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Checker probes Redis on an interval and drives the RedisStatus machine.
type Checker struct {
	status   *database.RedisStatus
	index    Rebuilder
	interval time.Duration
	log      *logger.Logger
	probe    func(ctx context.Context) (string, error)
}

func NewChecker(rdb *redis.Client, status *database.RedisStatus, index Rebuilder, interval time.Duration, log *logger.Logger) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Checker{
		status:   status,
		index:    index,
		interval: interval,
		log:      log,
		probe:    func(ctx context.Context) (string, error) { return RunID(ctx, rdb) },
	}
}

// RunID reads the server run_id from INFO. It changes on every Redis
// restart, which wipes the sorted sets.
func RunID(ctx context.Context, rdb *redis.Client) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	info, err := rdb.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	return parseRunID(info)
}

func parseRunID(info string) (string, error) {
	m := runIDPattern.FindStringSubmatch(info)
	if len(m) < 2 {
		return "", fmt.Errorf("run_id not found in redis INFO")
	}
	return m[1], nil
}

// Check runs one probe and, when needed, one rebuild. The rebuild only
// counts if the run_id is unchanged afterwards.
func (c *Checker) Check(ctx context.Context) {
	runID, err := c.probe(ctx)
	connected := err == nil
	before := c.status.State()
	if !c.status.Assess(connected, runID) {
		if after := c.status.State(); after != before {
			c.log.Warn("redis state changed", "from", before.String(), "to", after.String(), "error", err)
		}
		return
	}

	c.log.Info("rebuilding rank index", "runID", runID)
	if err := c.index.Rebuild(ctx); err != nil {
		c.log.Error("rank index rebuild failed", "error", err)
		c.status.MarkRebuildComplete(false, "")
		return
	}
	after, err := c.probe(ctx)
	if err != nil {
		c.log.Error("redis lost right after rebuild", "error", err)
		c.status.MarkRebuildComplete(false, "")
		return
	}
	if after != runID {
		c.log.Warn("redis restarted during rebuild", "before", runID, "after", after)
	}
	c.status.MarkRebuildComplete(true, after)
	if c.status.IsRedisHealthy() {
		c.log.Info("rank index healthy", "runID", after)
	}
}

// Run checks until the handle is closed.
func (c *Checker) Run(h *lifecycle.Handle) {
	defer h.Close()
	c.log.Info("redis health checker started", "interval", c.interval)
	for {
		c.Check(h.Ctx())
		if err := h.Sleep(c.interval); err != nil {
			c.log.Info("redis health checker stopped")
			return
		}
	}
}
