package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cubegate/cubegate/internal/api"
	"github.com/cubegate/cubegate/internal/archive"
	"github.com/cubegate/cubegate/internal/config"
	"github.com/cubegate/cubegate/internal/credentials"
	"github.com/cubegate/cubegate/internal/discovery"
	"github.com/cubegate/cubegate/internal/engine"
	duckdbengine "github.com/cubegate/cubegate/internal/engine/duckdb"
	trinoengine "github.com/cubegate/cubegate/internal/engine/trino"
	historypostgres "github.com/cubegate/cubegate/internal/history/postgres"
	"github.com/cubegate/cubegate/internal/observability"
	s3store "github.com/cubegate/cubegate/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("cubegate-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	provider, err := buildCredentialProvider(cfg)
	if err != nil {
		logger.Error("failed to configure credential provider", slog.Any("error", err))
		os.Exit(1)
	}

	factory, err := buildSessionFactory(cfg)
	if err != nil {
		logger.Error("failed to configure session factory", slog.Any("error", err))
		os.Exit(1)
	}

	gateway := &engine.Gateway{
		Credentials: provider,
		Factory:     factory,
		Discoverer:  &discovery.Discoverer{Logger: logger},
	}

	deps := api.Dependencies{
		Logger:            logger,
		Gateway:           gateway,
		DependencyTimeout: time.Second,
	}

	readiness := make([]api.ReadinessCheck, 0, 2)
	if cfg.History.Enabled {
		historyDB, err := historypostgres.Open(context.Background(), historypostgres.DBConfig{
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
		defer func() { _ = historyDB.Close() }()

		store := historypostgres.NewStore(historyDB)
		deps.History = store
		readiness = append(readiness, store.HealthCheck)

		if cfg.Archive.Enabled {
			objectStore, err := s3store.New(context.Background(), s3store.Config{
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

			archiver := &archive.Service{
				History:     store,
				ObjectStore: objectStore,
				Config: archive.Config{
					RetentionInterval: cfg.Archive.RetentionInterval,
					RetentionAge:      cfg.Archive.RetentionAge,
					IntegrityInterval: cfg.Archive.IntegrityInterval,
					IntegrityLimit:    cfg.Archive.IntegrityLimit,
				},
				Logger: logger,
			}
			deps.Archiver = archiver
			deps.Retention = archiver
			readiness = append(readiness, api.CheckObjectStoreConfig(cfg))
		}
	}
	deps.Readiness = api.CombineReadinessChecks(readiness...)

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("engine_driver", string(cfg.Engine.Driver)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func buildCredentialProvider(cfg config.Config) (engine.CredentialProvider, error) {
	if cfg.OAuth.TokenURL != "" {
		return credentials.NewClientCredentialsProvider(credentials.Config{
			TokenURL:     cfg.OAuth.TokenURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Scopes:       cfg.OAuth.Scopes(),
		})
	}
	if cfg.OAuth.StaticToken != "" {
		return credentials.StaticProvider{Value: cfg.OAuth.StaticToken}, nil
	}
	return nil, errors.New("either an oauth token url or a static token is required")
}

func buildSessionFactory(cfg config.Config) (engine.SessionFactory, error) {
	switch cfg.Engine.Driver {
	case config.EngineDriverTrino:
		return trinoengine.NewFactory(trinoengine.Config{
			Endpoint:       cfg.Engine.Endpoint,
			Source:         cfg.Engine.Source,
			CredentialMode: cfg.Engine.CredentialMode,
		})
	case config.EngineDriverDuckDB:
		return duckdbengine.NewFactory(duckdbengine.Config{DataDir: cfg.Engine.DataDir})
	default:
		return nil, errors.New("unknown engine driver")
	}
}
