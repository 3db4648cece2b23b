package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	_ "time/tzdata"

	"github.com/SlpAus/imagynex-season-backend/api"
	"github.com/SlpAus/imagynex-season-backend/internal/gallery"
	"github.com/SlpAus/imagynex-season-backend/internal/leaderboard"
	"github.com/SlpAus/imagynex-season-backend/internal/like"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/config"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/health"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/shutdown"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/startup"
	"github.com/SlpAus/imagynex-season-backend/internal/profile"
	"github.com/SlpAus/imagynex-season-backend/internal/rank"
	"github.com/SlpAus/imagynex-season-backend/internal/reset"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/SlpAus/imagynex-season-backend/pkg/lifecycle"
	"github.com/SlpAus/imagynex-season-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()

	// 1. season policy
	loc, err := cfg.Season.Location()
	if err != nil {
		log.Fatal("invalid season timezone", "error", err)
	}
	policy, err := season.ParsePolicy(cfg.Season.Policy, loc)
	if err != nil {
		log.Fatal("invalid season policy", "error", err)
	}

	// 2. database
	db, err := database.OpenDB(cfg.Database, cfg.Log.Mode == "dev")
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()
	if err := startup.InitializeApplication(ctx, db, policy, log); err != nil {
		log.Fatal("application initialization failed", "error", err)
	}
	st := store.NewGormStore(db, cfg.Database.OperationTimeout)

	// 3. optional redis rank index
	var rdb *redis.Client
	var status *database.RedisStatus
	if cfg.Redis.Enabled {
		status = database.NewRedisStatus()
		rdb, err = database.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unreachable, ranks are counted in the database until it recovers", "error", err)
			rdb = database.NewRedisClient(cfg.Redis)
		}
		defer rdb.Close()
	}
	index := leaderboard.NewIndex(rdb, status, st, log)

	gracefulMgr := lifecycle.NewManager()
	forcefulMgr := lifecycle.NewManager()

	if rdb != nil {
		checker := health.NewChecker(rdb, status, index, health.DefaultInterval, log)
		log.Info("running startup health check")
		checker.Check(ctx)

		h, err := gracefulMgr.NewServiceHandle("redis-health")
		if err != nil {
			log.Fatal("failed to register health checker", "error", err)
		}
		go checker.Run(h)
	}

	// 4. services
	resets := reset.NewExecutor(st, policy, index, db, cfg.Season.BatchSize, log)
	profiles := profile.NewService(st, resets, rank.NewCalculator(index), index, log)
	watermark, err := gallery.NewWatermarker(cfg.Watermark.Text, cfg.Watermark.FontPath, cfg.Watermark.FetchTimeout, cfg.Watermark.AllowedHosts)
	if err != nil {
		log.Fatal("failed to load watermark font", "error", err)
	}
	if cfg.Server.CookieSecret == "" {
		log.Warn("server.cookieSecret is empty, identity cookies will not survive a restart")
	}
	signer, err := token.NewSigner(cfg.Server.CookieSecret)
	if err != nil {
		log.Fatal("failed to build cookie signer", "error", err)
	}

	// 5. season scheduler
	schedule := cfg.Season.Schedule
	if schedule == "" {
		schedule = policy.DefaultSchedule()
	}
	if cfg.Season.Scheduler {
		scheduler, err := reset.NewScheduler(resets, schedule, cfg.Season.JobTimeout, log)
		if err != nil {
			log.Fatal("failed to configure season scheduler", "error", err)
		}
		graceful, err := gracefulMgr.NewServiceHandle("season-scheduler")
		if err != nil {
			log.Fatal("failed to register season scheduler", "error", err)
		}
		forceful, err := forcefulMgr.NewServiceHandle("season-scheduler")
		if err != nil {
			log.Fatal("failed to register season scheduler", "error", err)
		}
		go scheduler.Run(graceful, forceful)
	} else {
		log.Info("season scheduler disabled, run cmd/seasonreset at each boundary")
	}

	// 6. http
	router := api.NewRouter(cfg.Server, api.Deps{
		Profiles:    profiles,
		Gallery:     gallery.NewService(st, profiles, policy, watermark, log),
		Likes:       like.NewToggler(st, st, index, log),
		Limiter:     like.NewLimiter(rdb, status, cfg.Likes.MaxPerWindow, cfg.Likes.Window, log),
		Board:       leaderboard.NewBoard(st),
		Policy:      policy,
		Schedule:    schedule,
		DB:          db,
		RedisStatus: status,
		Signer:      signer,
		Log:         log,
	})
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		log.Info("server listening", "address", cfg.Server.Address, "policy", policy.Name())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	shutdown.NewCoordinator(gracefulMgr, forcefulMgr, log).ListenForSignalsAndShutdown(server)
	log.Info("shutdown complete")
}
