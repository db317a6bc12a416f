// Package main runs the background job worker (blob delete retries).
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coastline-realty/content-backend/config"
	"github.com/coastline-realty/content-backend/internal/worker"
	"github.com/coastline-realty/content-backend/pkg/queue"
	"github.com/coastline-realty/content-backend/pkg/redis"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the worker")
	}
	if !cfg.Storage.RemoteConfigured() {
		logger.Fatal("object store is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	objects, err := storage.NewS3(ctx, storage.S3Config{
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

	jobs := queue.NewQueue(rdb, logger)
	logger.Info("worker started")
	worker.NewBlobCleaner(objects, jobs, logger).Run(ctx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
