// Package main runs the support matchmaking HTTP server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peerlink-support/backend/config"
	"github.com/peerlink-support/backend/internal/auth"
	"github.com/peerlink-support/backend/internal/meetings"
	"github.com/peerlink-support/backend/internal/middleware"
	"github.com/peerlink-support/backend/internal/users"
	"github.com/peerlink-support/backend/internal/video"
	"github.com/peerlink-support/backend/pkg/database"
	"github.com/peerlink-support/backend/pkg/queue"
	"github.com/peerlink-support/backend/pkg/redis"
	"github.com/peerlink-support/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	issuer, err := newIssuer(cfg.Video)
	if err != nil {
		logger.Fatal("video provider", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and profiles
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, jwtService, jobQueue, logger)
	userHandler := users.NewHandler(userRepo)

	// Matchmaking engine
	meetingStore := meetings.NewRepository(pool)
	meetingService := meetings.NewService(meetingStore, userRepo, issuer, rdb, cfg.Meeting.PendingTimeout, logger)
	meetingHandler := meetings.NewHandler(meetingService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/forgotpassword", authHandler.ForgotPassword)
		authGroup.PUT("/resetpassword", authHandler.ResetPassword)
	}

	// System/cron (internal token, no user JWT)
	router.POST("/meetings/check-pending-timeouts",
		middleware.InternalToken(cfg.Internal.APIToken), meetingHandler.CheckPendingTimeouts)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users/me", userHandler.Me)
		api.PUT("/users/me", userHandler.UpdateMe)
		api.DELETE("/users/me", userHandler.DeleteMe)

		api.POST("/meetings", middleware.RequireRole("seeker"), meetingHandler.Create)
		api.GET("/meetings/global", middleware.RequireRole("helper"), meetingHandler.ListGlobal)
		api.GET("/meetings/pending-specific", middleware.RequireRole("helper"), meetingHandler.ListPendingSpecific)
		api.POST("/meetings/accept-specific", middleware.RequireRole("helper"), meetingHandler.AcceptSpecific)
		api.POST("/meetings/accept-first", middleware.RequireRole("helper"), meetingHandler.AcceptFirst)
		api.POST("/meetings/reject", middleware.RequireRole("helper"), meetingHandler.Reject)
		api.POST("/meetings/end", meetingHandler.End)
		api.POST("/meetings/token", meetingHandler.Token)
		api.GET("/meetings/:id", meetingHandler.Get)
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newIssuer(cfg config.VideoConfig) (video.Issuer, error) {
	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	switch cfg.Provider {
	case "zego":
		return video.NewZegoIssuer(cfg.Zego, ttl)
	default:
		return video.NewTwilioIssuer(cfg.Twilio, ttl)
	}
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
