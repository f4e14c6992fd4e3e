package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/accident-risk-etl/internal/adapter/file"
	"github.com/couchcryptid/accident-risk-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/accident-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/accident-risk-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/accident-risk-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/accident-risk-etl/internal/config"
	"github.com/couchcryptid/accident-risk-etl/internal/domain"
	"github.com/couchcryptid/accident-risk-etl/internal/observability"
	"github.com/couchcryptid/accident-risk-etl/internal/pipeline"
)

// namedCloser is a sink resource released at shutdown.
type namedCloser struct {
	name string
	io.Closer
}

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

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	sinks, closers, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sinks", "error", err)
		os.Exit(1)
	}
	defer closeAll(closers, logger)

	p := pipeline.New(file.NewSource(cfg.InputPath), sinks, geocoder, logger, metrics, pipeline.Options{
		Schema:       cfg.Schema(),
		TopN:         cfg.TopN,
		Heat:         cfg.HeatOptions(),
		SinkAttempts: cfg.SinkAttempts,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	for _, sink := range sinks {
		if store, ok := sink.(*sqlite.Store); ok {
			srv.WithStore(store)
		}
	}

	// Start HTTP server so health probes answer while the batch runs.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("pipeline run failed", "input", cfg.InputPath, "error", err)
		shutdown(cfg, srv, logger)
		closeAll(closers, logger)
		os.Exit(1) //nolint:gocritic // resources released above
	}

	<-ctx.Done()
	logger.Info("shutting down")
	shutdown(cfg, srv, logger)
	logger.Info("shutdown complete")
}

func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, []namedCloser, error) {
	var (
		sinks   []pipeline.Sink
		closers []namedCloser
	)

	if cfg.OutputDir != "" {
		sinks = append(sinks, file.NewJSONSink(cfg.OutputDir))
		logger.Info("json artifact sink enabled", "dir", cfg.OutputDir)
	}
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closers = append(closers, namedCloser{name: "sqlite", Closer: store})
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		closers = append(closers, namedCloser{name: "kafka writer", Closer: writer})
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if len(sinks) == 0 {
		logger.Warn("no sinks configured; artifacts are served over HTTP only")
	}
	return sinks, closers, nil
}

func shutdown(cfg *config.Config, srv *httpadapter.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}

func closeAll(closers []namedCloser, logger *slog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "resource", c.name, "error", err)
		}
	}
}
