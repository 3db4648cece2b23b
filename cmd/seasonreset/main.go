// Command seasonreset runs one bulk season reset and exits. Use it from an
// external scheduler when season.scheduler is disabled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/SlpAus/imagynex-season-backend/internal/leaderboard"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/config"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/startup"
	"github.com/SlpAus/imagynex-season-backend/internal/reset"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	force := flag.Bool("force", false, "reset even if this season was already closed")
	at := flag.String("at", "", "RFC3339 reset time, defaults to now")
	flag.Parse()

	if err := run(*force, *at); err != nil {
		fmt.Fprintf(os.Stderr, "season reset failed: %v\n", err)
		os.Exit(1)
	}
}

func run(force bool, at string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.Season.Location()
	if err != nil {
		return err
	}
	policy, err := season.ParsePolicy(cfg.Season.Policy, loc)
	if err != nil {
		return err
	}
	now := time.Now()
	if at != "" {
		if now, err = time.Parse(time.RFC3339, at); err != nil {
			return fmt.Errorf("invalid -at: %w", err)
		}
	}

	db, err := database.OpenDB(cfg.Database, false)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	ctx := context.Background()
	if cfg.Season.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Season.JobTimeout)
		defer cancel()
	}
	if err := startup.InitializeApplication(ctx, db, policy, log); err != nil {
		return err
	}

	st := store.NewGormStore(db, cfg.Database.OperationTimeout)

	var rdb *redis.Client
	var status *database.RedisStatus
	if cfg.Redis.Enabled {
		rdb, err = database.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unreachable, the server will rebuild the rank index", "error", err)
		} else {
			defer rdb.Close()
			status = database.NewRedisStatus()
		}
	}
	index := leaderboard.NewIndex(rdb, status, st, log)

	exec := reset.NewExecutor(st, policy, index, db, cfg.Season.BatchSize, log)
	done, err := exec.AlreadyReset(ctx, now)
	if err != nil {
		return err
	}
	if done && !force {
		log.Info("season already reset, nothing to do", "season", policy.SeasonKey(now))
		return nil
	}

	report, err := exec.BulkReset(ctx, now)
	if err != nil {
		var partial *reset.PartialBatchError
		if errors.As(err, &partial) {
			log.Error("season reset partially applied", "committed", partial.Committed, "failed", partial.Failed)
		}
		return err
	}
	log.Info("season reset done",
		"season", report.SeasonKey, "profiles", report.Profiles, "batches", report.Batches,
		"winner", report.Winner, "runnerUp", report.RunnerUp)
	return nil
}
