package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"booking-frontend/internal/apiclient"
	"booking-frontend/internal/app"
	"booking-frontend/internal/cache"
	"booking-frontend/internal/config"
	"booking-frontend/internal/logging"
	"booking-frontend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	api, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Breaker: apiclient.BreakerConfig{
			MaxRequests:         cfg.API.Breaker.MaxRequests,
			Interval:            cfg.API.Breaker.Interval,
			OpenTimeout:         cfg.API.Breaker.OpenTimeout,
			ConsecutiveFailures: cfg.API.Breaker.ConsecutiveFailures,
		},
	}, logger)
	if err != nil {
		logger.Fatal("failed to create api client", zap.Error(err))
	}

	var qc cache.QueryCache
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()
		rc := cache.NewRedisCache(rdb, cfg.Cache.TTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, queries will miss until it is back", zap.Error(err))
		}
		cancel()
		qc = rc
	} else {
		logger.Info("no redis configured, using in-memory query cache")
		qc = cache.NewMemoryCache(cfg.Cache.TTL)
	}

	appInstance := app.New(api, qc, logger, cfg.Location(), cfg.Views.IdleTTL)

	sweeper, err := appInstance.StartSweeper(cfg.Views.SweepCron)
	if err != nil {
		logger.Fatal("failed to schedule view sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	appInstance.Routes(router, cfg.CORS.AllowedOrigins)

	if err := server.Run(router, cfg.Port, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
