package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cubegate/cubegate/internal/archive"
	"github.com/cubegate/cubegate/internal/config"
	historypostgres "github.com/cubegate/cubegate/internal/history/postgres"
	"github.com/cubegate/cubegate/internal/observability"
	s3store "github.com/cubegate/cubegate/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("cubegate-archiver")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := historypostgres.Open(context.Background(), historypostgres.DBConfig{
		DSN:             cfg.History.DSN,
		MaxOpenConns:    cfg.History.MaxOpenConns,
		MaxIdleConns:    cfg.History.MaxIdleConns,
		ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.History.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open history db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store, err := s3store.New(context.Background(), s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	svc := &archive.Service{
		History:     historypostgres.NewStore(db),
		ObjectStore: store,
		Config: archive.Config{
			RetentionInterval: cfg.Archive.RetentionInterval,
			RetentionAge:      cfg.Archive.RetentionAge,
			IntegrityInterval: cfg.Archive.IntegrityInterval,
			IntegrityLimit:    cfg.Archive.IntegrityLimit,
		},
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("archiver janitor started")
	if err := svc.Run(ctx); err != nil {
		logger.Error("archiver janitor failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("archiver janitor stopped")
}
