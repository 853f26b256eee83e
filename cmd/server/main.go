// Package main is the entry point for the API server. It wires the store,
// cache, payment gateways and services, then serves HTTP and websockets
// until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"estatehub/internal/config"
	"estatehub/internal/handlers"
	applog "estatehub/internal/logger"
	"estatehub/internal/metrics"
	"estatehub/internal/middleware"
	"estatehub/internal/realtime"
	"estatehub/internal/repositories"
	"estatehub/internal/repositories/cache"
	"estatehub/internal/repositories/memory"
	"estatehub/internal/routes"
	"estatehub/internal/services/auth"
	"estatehub/internal/services/credit"
	"estatehub/internal/services/interest"
	"estatehub/internal/services/notification"
	"estatehub/internal/services/payment"
	"estatehub/internal/services/property"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	log, err := applog.New(cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}

	var (
		store repositories.Store
		db    *gorm.DB
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		store = memory.New()
	default:
		db, err = repositories.OpenPostgres(cfg)
		if err != nil {
			log.Fatal("database unavailable", zap.Error(err))
		}
		store = repositories.NewGormStore(db)
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
	}

	// Redis is optional. Without it caches always miss, the reconcile lock is
	// local and notifications fan out only to this instance's sockets.
	var (
		redisClient  *redis.Client
		cacheService *cache.CacheService
	)
	if cfg.RedisEnabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			cacheService = cache.NewCacheService(redisClient, cfg.CacheTTL)
			checks["redis"] = cacheService.HealthCheck
		}
	}

	m := metrics.New()
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := auth.NewService(store.Users(), tokens, log)

	hub := realtime.NewHub(authService, realtime.Config{
		AllowedOrigins: splitOrigins(cfg.CORSOrigins),
	}, log)
	m.GaugeFunc("realtime", "connections", "Open websocket connections.", func() float64 {
		return float64(hub.Connections())
	})

	var publisher notification.Publisher = hub
	if redisClient != nil {
		publisher = realtime.NewRedisPublisher(redisClient)
		go func() {
			if err := hub.Subscribe(ctx, redisClient); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification subscription ended", zap.Error(err))
			}
		}()
	}

	dispatcher := notification.NewDispatcher(store, publisher, notification.Config{
		QueueSize: cfg.NotificationQueueSize,
		Workers:   cfg.NotificationWorkers,
	}, m, log)
	dispatcher.Start(ctx)

	var (
		creditCache  credit.Cache
		creditLocker credit.Locker
		unlockCache  interest.Cache
	)
	if cacheService != nil {
		creditCache, creditLocker, unlockCache = cacheService, cacheService, cacheService
	}

	credits := credit.NewService(store, payment.NewRegistryFromConfig(cfg, log), creditCache, dispatcher, credit.Config{
		Currency:             cfg.Currency,
		CallbackURL:          strings.TrimRight(cfg.PublicBaseURL, "/") + "/api/credits/callback",
		FrontendURL:          cfg.FrontendURL,
		BundleTTL:            cfg.CacheTTL,
		ReconcileMinAge:      cfg.ReconcileMinAge,
		ReconcileExpireAfter: cfg.ReconcileExpireAfter,
		ReconcileBatchSize:   cfg.ReconcileBatchSize,
	}, m, log)

	reconciler := credit.NewReconciler(credits, creditLocker, cfg.ReconcileSchedule, log)
	if err := reconciler.Start(); err != nil {
		log.Fatal("reconciler not started", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "estatehub",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(m.Middleware())

	authLimit := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		},
	})
	app.Use("/api/auth/register", authLimit)
	app.Use("/api/auth/login", authLimit)

	routes.SetupRoutes(app, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.IsProduction(), log),
		Credit:       handlers.NewCreditHandler(credits, log),
		Admin:        handlers.NewAdminHandler(credits, reconciler, log),
		Property:     handlers.NewPropertyHandler(property.NewService(store.Properties(), log), log),
		Interest:     handlers.NewInterestHandler(interest.NewService(store, unlockCache, dispatcher, m, log), log),
		Notification: handlers.NewNotificationHandler(dispatcher, log),
		Health:       handlers.NewHealthHandler(version, checks),
		Metrics:      m,
	}, middleware.NewAuthMiddleware(authService, log))

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	wsServer := &http.Server{
		Addr:              ":" + cfg.RealtimePort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("realtime listening", zap.String("port", cfg.RealtimePort))
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("realtime server failed", zap.Error(err))
			stop()
		}
	}()
	go func() {
		log.Info("api listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("api server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("api shutdown", zap.Error(err))
	}
	reconciler.Stop(shutdownCtx)
	dispatcher.Stop()
	hub.Close()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("realtime shutdown", zap.Error(err))
	}

	if db != nil {
		if err := repositories.Close(db); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
	if cacheService != nil {
		if err := cacheService.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			out = append(out, o)
		}
	}
	return out
}
