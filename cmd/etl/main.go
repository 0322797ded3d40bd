package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/metar-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/metar-etl/internal/adapter/kafka"
	"github.com/couchcryptid/metar-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/metar-etl/internal/config"
	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/metar"
	"github.com/couchcryptid/metar-etl/internal/observability"
	"github.com/couchcryptid/metar-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	lex := metar.NewLexicon(cfg.MetarMaxTokens)

	var validator *metar.Validator
	if cfg.MetarValidate {
		validator = metar.NewValidator(lex, metar.ValidatorOptions{Strict: cfg.MetarStrict})
		logger.Info("report validation enabled", "strict", cfg.MetarStrict)
	} else {
		logger.Info("report validation disabled")
	}

	// Station enrichment is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var locator domain.StationLocator
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		locator = mapbox.NewCachedLocator(client, cfg.MapboxCacheSize, metrics)
		metrics.StationLookupEnabled.Set(1)
		logger.Info("station lookup enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout, "rate_limit", cfg.MapboxRateLimit)
	} else {
		logger.Info("station lookup disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(lex, validator, locator, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.NewReportHandler(lex, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
