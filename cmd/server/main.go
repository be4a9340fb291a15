package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/logger"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("storefront started", map[string]any{
		"port":    cfg.AppPort,
		"backend": cfg.BackendBaseURL,
		"storage": cfg.StorageBackend,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", map[string]any{
		"timeout": cfg.ShutdownTimeout.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("storefront stopped cleanly", nil)
}
