// Package main provides the entry point for the price comparison HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pharmalens/price-compare-service/internal/aggregator"
	"github.com/pharmalens/price-compare-service/internal/config"
	"github.com/pharmalens/price-compare-service/internal/database"
	"github.com/pharmalens/price-compare-service/internal/intake"
	"github.com/pharmalens/price-compare-service/internal/observability"
	"github.com/pharmalens/price-compare-service/internal/orchestrator"
	"github.com/pharmalens/price-compare-service/internal/outbox"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/catalog"
	"github.com/pharmalens/price-compare-service/internal/repository"
	httpserver "github.com/pharmalens/price-compare-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("price-compare-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Search history: PostgreSQL when enabled, otherwise process memory.
	var (
		history repository.SearchHistoryRepository
		health  httpserver.HealthChecker
	)
	if cfg.Database.Enabled {
		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		logger.Info().Msg("database connection established")

		if cfg.Database.MigrationAutoRun {
			if err := migrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
				return err
			}
		}
		history = repository.NewPgSearchHistoryRepository(db)
		health = db
	} else {
		logger.Warn().Msg("database disabled, search history is kept in memory")
		history = repository.NewMemorySearchHistoryRepository()
	}

	// Outbox publishing of finished searches.
	var sink outbox.Sink = outbox.NopSink{}
	if cfg.Kafka.Enabled {
		sink = outbox.NewKafkaSink(outbox.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka publisher configured")
	}
	publisher := outbox.NewPublisher(outbox.NewEmitter(outbox.EmitterConfig{}), sink)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close publisher")
		}
	}()

	// Pharmacy sources and the search pipeline.
	registry := catalog.NewRegistry(cfg.Pharmacies, logger)
	if registry.Len() == 0 {
		logger.Warn().Msg("no pharmacies enabled, searches will fail with no sources configured")
	}

	orch := orchestrator.New(
		orchestrator.Config{
			PerSourceTimeout: cfg.Search.PerSourceTimeout,
			BatchConcurrency: cfg.Search.BatchConcurrency,
			FallbackEnabled:  cfg.Search.FallbackEnabled,
		},
		registry,
		aggregator.New(logger, metrics),
		history,
		publisher,
		logger,
		metrics,
	)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, orch, history, health, logger, metrics)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = newMetricsServer(cfg.Server, cfg.Metrics.Path)
	}

	// Channel to collect background errors.
	errCh := make(chan error, 3)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Prescription intake: parsed prescriptions arrive as batches.
	var listener *intake.Listener
	if cfg.Intake.Enabled {
		listener = intake.NewListener(intake.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Intake.Topic,
			GroupID: cfg.Intake.GroupID,
		}, orch, logger)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("prescription listener error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address).
		Int("pharmacies", registry.Len()).
		Bool("database", cfg.Database.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("intake", cfg.Intake.Enabled)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("price-compare-service is ready")

	// Wait for shutdown signal or server error.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server error")
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down price-compare-service")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	if listener != nil {
		if err := listener.Close(); err != nil {
			logger.Error().Err(err).Msg("prescription listener close error")
		}
	}

	logger.Info().Msg("price-compare-service shutdown complete")
	return runErr
}

// migrateUp applies pending migrations before the service accepts traffic.
func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// newMetricsServer serves the Prometheus handler on the metrics port.
func newMetricsServer(cfg config.ServerConfig, path string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle(path, promhttp.Handler())
	return &http.Server{
		Addr:         cfg.MetricsAddress(),
		Handler:      metricsMux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
