package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minerva/internal/adapters/config"
	"minerva/internal/adapters/embeddings"
	"minerva/internal/adapters/errors/noop"
	"minerva/internal/adapters/errors/sentry"
	"minerva/internal/adapters/kafka"
	"minerva/internal/adapters/polygon"
	"minerva/internal/adapters/postgres"
	"minerva/internal/adapters/ratelimit"
	"minerva/internal/api"
	"minerva/internal/api/health"
	"minerva/internal/events"
	"minerva/internal/metrics"
	repository "minerva/internal/repository/postgres"
	optionssvc "minerva/internal/services/options"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize metrics collectors
	metrics.Init()

	// Initialize database connection
	pg, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	// Initialize embedding provider
	embedder, err := embeddings.NewProvider(embeddings.Config{
		Provider: embeddings.ProviderType(cfg.Embeddings.Provider),
		APIKey:   cfg.Embeddings.APIKey,
		Model:    cfg.Embeddings.Model,
		Timeout:  cfg.Embeddings.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to init embedding provider: %v", err)
	}
	log.Infof("Embedding provider ready: %s (%d dims)", embedder.Name(), embedder.Dimensions())

	// Initialize repositories
	store := repository.NewSnapshotRepository(pg.DB())
	index := repository.NewEmbeddingIndex(pg.DB(), embedder.Dimensions())

	// Initialize event publisher (nil-safe no-op unless Kafka is enabled)
	producer, publisher := initEvents(cfg, log)
	if producer != nil {
		defer producer.Close()
	}

	// Initialize services
	upstream := polygon.NewClient(cfg.Polygon)
	limiter := ratelimit.NewLimiter("polygon", cfg.Polygon.RatePerMin)
	fetcher := optionssvc.NewFetcher(store, index, embedder, upstream, limiter, publisher)
	detector := optionssvc.NewDetector(store, index, publisher)
	service := optionssvc.NewService(fetcher, detector, store, index)

	// Initialize HTTP server
	healthHandler := health.New(log, pg.DB(), cfg.App.Name, version)
	optionsHandler := api.NewOptionsHandler(service, log)
	server := api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler, optionsHandler, log)

	log.Info("System initialized successfully")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, server, errorTracker, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initEvents initializes the Kafka producer and snapshot event publisher.
// Returns nils when Kafka is disabled; the publisher is nil-safe so callers
// do not branch.
func initEvents(cfg *config.Config, log *logger.Logger) (*kafka.Producer, *events.Publisher) {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Info("Event publishing disabled")
		return nil, nil
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	log.Infof("Event publishing enabled (topic %s)", cfg.Kafka.Topic)
	return producer, events.NewPublisher(producer, cfg.Kafka.Topic)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Failed to stop HTTP server: %v", err)
	}

	// Flush error tracker
	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
