package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sngm3741/dispatch-contact/api/internal/config"
	"github.com/sngm3741/dispatch-contact/api/internal/infrastructure/mongo"
	"github.com/sngm3741/dispatch-contact/api/internal/logger"
	"github.com/sngm3741/dispatch-contact/api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	client, err := mongo.Connect(connectCtx, cfg.Mongo)
	cancel()
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}

	app, err := server.New(cfg, client, log)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}
	if err := app.Run(ctx); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
