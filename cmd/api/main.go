package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harentsoaR/auc-api/internal/config"
	"github.com/harentsoaR/auc-api/internal/logging"
	"github.com/harentsoaR/auc-api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to create server", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error(context.Background(), "failed to close resources", "error", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error(ctx, "server error", "error", err)
		stop()
		_ = srv.Close()
		os.Exit(1)
	}
	logger.Info(context.Background(), "server stopped")
}
