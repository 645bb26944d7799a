package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cubegate/cubegate/internal/demo/workload"
)

func main() {
	cfg, err := workload.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo workload config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := workload.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize demo workload", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"demo workload started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("dataset", cfg.Dataset),
		slog.Duration("interval", cfg.Interval),
	)

	err = service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo workload stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo workload stopped")
}
