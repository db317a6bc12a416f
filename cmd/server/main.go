// Package main runs the content HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coastline-realty/content-backend/config"
	"github.com/coastline-realty/content-backend/internal/auth"
	"github.com/coastline-realty/content-backend/internal/collections"
	"github.com/coastline-realty/content-backend/internal/display"
	"github.com/coastline-realty/content-backend/internal/events"
	"github.com/coastline-realty/content-backend/internal/invalidation"
	"github.com/coastline-realty/content-backend/internal/listings"
	"github.com/coastline-realty/content-backend/internal/middleware"
	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/promo"
	"github.com/coastline-realty/content-backend/internal/worker"
	"github.com/coastline-realty/content-backend/pkg/database"
	"github.com/coastline-realty/content-backend/pkg/imaging"
	"github.com/coastline-realty/content-backend/pkg/queue"
	"github.com/coastline-realty/content-backend/pkg/redis"
	"github.com/coastline-realty/content-backend/pkg/response"
	"github.com/coastline-realty/content-backend/pkg/storage"
	"github.com/coastline-realty/content-backend/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	gin.SetMode(cfg.Server.GinMode)

	loc, err := cfg.Site.Location()
	if err != nil {
		logger.Fatal("site timezone", zap.Error(err))
	}
	clock := func() time.Time { return time.Now().In(loc) }

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Object store (optional: local mode without it)
	var objects storage.ObjectStore
	if cfg.Storage.RemoteConfigured() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		}, logger)
		if err != nil {
			logger.Fatal("object store", zap.Error(err))
		}
		objects = s3Client
	} else {
		logger.Warn("object store not configured, running in local mode",
			zap.Bool("allow_local_writes", cfg.Site.AllowLocalWrites))
	}

	// Baseline store
	var baseline storage.BaselineStore
	switch cfg.Baseline.Driver {
	case config.BaselinePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		baseline = storage.NewPostgresBaseline(pool)
	default:
		baseline = storage.NewFileBaseline(cfg.Baseline.Dir)
		logger.Info("file baseline", zap.String("dir", cfg.Baseline.Dir))
	}

	storeOpts := collections.Options{
		Remote:           objects,
		Baseline:         baseline,
		KeyPrefix:        cfg.Storage.KeyPrefix,
		AllowLocalWrites: cfg.Site.AllowLocalWrites,
		Clock:            clock,
		Logger:           logger,
	}
	listingStore := collections.NewStore[[]models.Listing](collections.Listings, listings.Schema(), storeOpts)
	eventStore := collections.NewStore[[]models.EventPoster](collections.Events, events.Schema(), storeOpts)
	promoStore := collections.NewStore[*models.PromoConfig](collections.Promo, promo.Schema{}, storeOpts)

	// Auth
	secretHash := cfg.Auth.AdminSecretHash
	if secretHash == "" && cfg.Auth.AdminSecret != "" {
		secretHash, err = utils.HashSecret(cfg.Auth.AdminSecret)
		if err != nil {
			logger.Fatal("hash admin secret", zap.Error(err))
		}
	}
	if secretHash == "" {
		logger.Warn("no admin secret configured, admin login disabled")
	}
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	session := auth.NewSession(secretHash, jwtService)
	authHandler := auth.NewHandler(session, cfg.Auth.SecureCookie, logger)

	// Services
	codec := imaging.Codec{}
	var notifier invalidation.Notifier = invalidation.NewLogNotifier(logger)
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		notifier = invalidation.NewRedisNotifier(rdb, logger)
	}

	// Local writes invalidate this instance directly; Redis carries them to
	// the others.
	var displayService *display.Service
	notifier = invalidation.Multi(notifier, invalidation.Func(func(string) { displayService.Invalidate() }))

	listingService := listings.NewService(listingStore, session, notifier, clock, logger)
	eventService := events.NewService(eventStore, objects, codec, session, notifier, clock, logger)
	promoService := promo.NewService(promoStore, objects, codec, session, notifier, clock, logger)
	displayService = display.NewService(eventService, promoService, clock, cfg.Site.DisplayCacheTTL, logger)

	if rdb != nil {
		jobs := queue.NewQueue(rdb, logger)
		eventService.SetDeleteRetrier(jobs)
		promoService.SetDeleteRetrier(jobs)
		if objects != nil && cfg.Worker.Embedded {
			go worker.NewBlobCleaner(objects, jobs, logger).Run(ctx)
			logger.Info("blob cleaner started")
		}

		err := invalidation.Subscribe(ctx, rdb, logger, func(invalidation.Message) {
			displayService.Invalidate()
		})
		if err != nil {
			logger.Warn("invalidation subscribe failed", zap.Error(err))
		}
	}

	listingHandler := listings.NewHandler(listingService)
	eventHandler := events.NewHandler(eventService)
	promoHandler := promo.NewHandler(promoService)
	displayHandler := display.NewHandler(displayService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SessionToken())

	// Health
	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "remote": objects != nil, "baseline": cfg.Baseline.Driver})
	})

	api := router.Group("/api")

	// Public content
	listingHandler.RegisterPublic(api)
	eventHandler.RegisterPublic(api)
	promoHandler.RegisterPublic(api)
	displayHandler.Register(api)

	// Auth (public)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/session", authHandler.Session)
	}

	// Admin (session required)
	admin := api.Group("/admin")
	admin.Use(middleware.RequireSession(session))
	{
		listingHandler.RegisterPublic(admin)
		listingHandler.RegisterAdmin(admin)
		eventHandler.RegisterAdmin(admin)
		promoHandler.RegisterAdmin(admin)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	// Let background migrations finish before the stores go away.
	listingStore.Wait()
	eventStore.Wait()
	promoStore.Wait()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
