package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/rainfall-predictor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainfall-predictor/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-predictor/internal/adapter/postgres"
	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
	"github.com/couchcryptid/rainfall-predictor/internal/config"
	"github.com/couchcryptid/rainfall-predictor/internal/observability"
	"github.com/couchcryptid/rainfall-predictor/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pages, err := httpadapter.NewPages(cfg.TemplateDir)
	if err != nil {
		logger.Error("failed to load page templates", "dir", cfg.TemplateDir, "error", err)
		os.Exit(1)
	}

	// Missing artifacts are not fatal: the first /predict retries the load.
	store := artifact.NewStore(cfg.ArtifactDir, logger, metrics)
	if missing := store.Missing(); len(missing) > 0 {
		logger.Warn("missing model artifacts, predictions will fail until they are generated",
			"dir", cfg.ArtifactDir, "missing", missing)
	} else if err := store.Load(ctx); err != nil {
		logger.Error("initial artifact load failed", "dir", cfg.ArtifactDir, "error", err)
	}

	var sinks []pipeline.EventSink

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka prediction events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPredictionTopic)
	} else {
		logger.Info("kafka prediction events disabled")
	}

	var audit *postgres.Store
	if cfg.DatabaseURL != "" {
		audit, err = postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			// Degrade gracefully: serve predictions without the audit log.
			logger.Warn("prediction audit log disabled", "error", err)
		} else {
			sinks = append(sinks, audit)
			logger.Info("prediction audit log enabled")
		}
	}

	svc := pipeline.New(store, sinks, logger, metrics, cfg.PublishTimeout)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, pages, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if audit != nil {
		audit.Close()
	}

	logger.Info("shutdown complete")
}
