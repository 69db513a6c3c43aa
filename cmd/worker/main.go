// Package main runs the background worker: the pending-meeting timeout
// sweeper and the email job consumer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peerlink-support/backend/config"
	"github.com/peerlink-support/backend/internal/meetings"
	"github.com/peerlink-support/backend/internal/worker"
	"github.com/peerlink-support/backend/pkg/database"
	"github.com/peerlink-support/backend/pkg/mailer"
	"github.com/peerlink-support/backend/pkg/queue"
	"github.com/peerlink-support/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Timeout sweeper. The worker never issues credentials or resolves
	// users, so the engine runs without those collaborators.
	meetingStore := meetings.NewRepository(pool)
	meetingService := meetings.NewService(meetingStore, nil, nil, rdb, cfg.Meeting.PendingTimeout, logger)
	sweeper := meetings.NewSweeper(meetingService, rdb, cfg.Meeting.SweepInterval, logger)
	go sweeper.Run(ctx)
	logger.Info("timeout sweeper started", zap.Duration("interval", cfg.Meeting.SweepInterval))

	// Email jobs
	jobQueue := queue.NewQueue(rdb.Client, logger)
	emailProcessor := worker.NewEmailProcessor(mailer.New(cfg.Email, logger), jobQueue, logger)
	go emailProcessor.Run(ctx)
	logger.Info("email worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	return logger
}
