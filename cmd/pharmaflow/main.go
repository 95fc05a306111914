package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/pharmaflow/internal/cache"
	"github.com/vbonduro/pharmaflow/internal/cache/pebblecache"
	"github.com/vbonduro/pharmaflow/internal/changefeed"
	"github.com/vbonduro/pharmaflow/internal/config"
	"github.com/vbonduro/pharmaflow/internal/db"
	"github.com/vbonduro/pharmaflow/internal/docstore"
	"github.com/vbonduro/pharmaflow/internal/docstore/memory"
	"github.com/vbonduro/pharmaflow/internal/docstore/mongo"
	"github.com/vbonduro/pharmaflow/internal/docstore/sqlite"
	"github.com/vbonduro/pharmaflow/internal/logging"
	"github.com/vbonduro/pharmaflow/internal/metrics"
	"github.com/vbonduro/pharmaflow/internal/reminder"
	"github.com/vbonduro/pharmaflow/internal/service"
	"github.com/vbonduro/pharmaflow/internal/syncer"
	"github.com/vbonduro/pharmaflow/internal/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pharmaflow stopped", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	remote, closeRemote, err := openRemote(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRemote()

	local, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := local.Close(); err != nil {
			logger.Error("failed to close cache", "error", err)
		}
	}()

	reg := metrics.NewRegistry()
	alerts := web.NewAlerts(web.DefaultAlertCapacity)
	observers := syncer.MultiObserver{reg}

	feed, err := newFeed(cfg, logger)
	if err != nil {
		return err
	}
	if feed != nil {
		observers = append(observers, feed)
		defer func() {
			fctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := feed.Close(fctx); err != nil {
				logger.Error("failed to close change feed", "error", err)
			}
		}()
	}

	sync := syncer.New(remote, local, syncer.Options{
		StrictWrites: cfg.StrictWrites,
		WriteRetries: cfg.WriteRetries,
		RetryBackoff: cfg.RetryBackoff,
		WriteTimeout: cfg.WriteTimeout,
		Notifier:     syncer.MultiNotifier{syncer.LogNotifier{Logger: logger}, alerts},
		Observer:     observers,
		Logger:       logger,
	})
	if err := sync.Open(ctx); err != nil {
		return fmt.Errorf("failed to open synchronizer: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sync.Close(sctx); err != nil {
			logger.Error("failed to flush pending writes", "error", err)
		}
	}()

	svc := service.New(sync, loc, logger)

	rem, err := reminder.New(svc, reg, loc, cfg.ReminderInterval, logger)
	if err != nil {
		return err
	}
	rem.Start()
	defer rem.Stop()

	server := web.NewServer(svc, sync, alerts, reg.Handler(), logger)
	httpServer := server.HTTPServer(cfg.ListenAddr)

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr, "store", cfg.StoreBackend, "cache", cfg.CacheBackend)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func openRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-process document store, data is not shared or persisted")
		s := memory.New()
		return s, func() { _ = s.Close() }, nil
	case "mongo":
		s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.PollInterval, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("failed to disconnect from mongo", "error", err)
			}
		}, nil
	default:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return sqlite.NewStore(database, cfg.PollInterval, logger), func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}, nil
	}
}

func openCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheBackend == "memory" {
		return cache.NewMemory(), nil
	}
	c, err := pebblecache.New(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, nil
}

func newFeed(cfg *config.Config, logger *slog.Logger) (*changefeed.Feed, error) {
	var writers []changefeed.Writer
	if cfg.ChangefeedSink == "file" || cfg.ChangefeedSink == "both" {
		fw, err := changefeed.NewFileWriter(cfg.ChangefeedDir, "changes.jsonl")
		if err != nil {
			return nil, err
		}
		writers = append(writers, fw)
	}
	if cfg.ChangefeedSink == "kafka" || cfg.ChangefeedSink == "both" {
		writers = append(writers, changefeed.NewKafkaWriter(cfg.KafkaBootstrap, cfg.KafkaTopic))
	}
	if len(writers) == 0 {
		return nil, nil
	}
	return changefeed.NewFeed(changefeed.NewMultiWriter(writers...), 256, logger), nil
}
