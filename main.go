package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bellapacxx/guba-backend/app"
	"github.com/bellapacxx/guba-backend/config"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	defer logger.Sync()

	// Load env variables
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("[FATAL] Invalid configuration: %v", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warnf("Unknown LOG_LEVEL %q, keeping info", cfg.LogLevel)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	st, err := config.SetupDatabase(ctx, cfg)
	if err != nil {
		logger.Fatalf("[FATAL] Failed to set up %s store: %v", cfg.StoreDriver, err)
	}
	c, err := config.SetupCache(ctx, cfg)
	if err != nil {
		logger.Fatalf("[FATAL] Failed to set up cache: %v", err)
	}

	a := app.New(cfg, st, c)
	if err := a.Start(ctx, cfg); err != nil {
		logger.Fatalf("[FATAL] Failed to start background services: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("🚀 Guba backend server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("[FATAL] Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
	a.Shutdown(shutdownCtx)
	if err := c.Close(); err != nil {
		logger.Errorf("Close cache: %v", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		logger.Errorf("Close store: %v", err)
	}
	logger.Info("✅ Server stopped")
}
