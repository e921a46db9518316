// Package main runs the classroom polling server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/chat"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/internal/session"
	"github.com/classpulse/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	hub := realtime.NewHub(logger)
	manager := session.NewManager(hub, logger, time.Duration(cfg.Poll.DefaultTimeLimitSeconds)*time.Second)
	relay := chat.NewRelay(hub, manager, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "timestamp": time.Now().UnixMilli()})
	})

	// Read-only REST mirrors of the teacher views; all mutation goes over /ws.
	router.GET("/history", func(c *gin.Context) {
		response.OK(c, manager.History())
	})
	router.GET("/participants", func(c *gin.Context) {
		response.OK(c, manager.Roster())
	})
	router.GET("/students/:id/performance", func(c *gin.Context) {
		id := c.Param("id")
		if !manager.Exists(id) {
			response.NotFound(c, "participant not found")
			return
		}
		response.OK(c, manager.PerformanceFor(id))
	})

	// WebSocket (role declared in query; identity is issued on join)
	replayDelay := time.Duration(cfg.Socket.ReplayDelayMs) * time.Millisecond
	router.GET("/ws", realtime.ServeWS(hub, manager, relay, logger, replayDelay))

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

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
