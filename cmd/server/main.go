// Package main is the entry point for the intake HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/intake/internal/config"
	"github.com/dharsanguruparan/intake/internal/logging"
	"github.com/dharsanguruparan/intake/internal/queue"
	"github.com/dharsanguruparan/intake/internal/reportlog"
	"github.com/dharsanguruparan/intake/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, err := reportlog.Open(ctx, reportlog.Options{
		Driver:      cfg.ReportStore,
		JSONPath:    cfg.ReportLog,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		logger.Fatal("open report log", zap.String("driver", cfg.ReportStore), zap.Error(err))
	}
	defer reports.Close()

	var dispatcher queue.Dispatcher = queue.Noop{}
	if cfg.ArchiveEnabled() {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		dispatcher = queue.NewAsynqDispatcher(client)
		logger.Info("archiving uploads", zap.String("redis", cfg.RedisAddr))
	}

	srv, err := server.New(cfg, reports, dispatcher, logger)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}
	if err := srv.Serve(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
