package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aegis-analytics/tacticalfit-service/internal/aggregator"
	"github.com/aegis-analytics/tacticalfit-service/internal/config"
	httpHandler "github.com/aegis-analytics/tacticalfit-service/internal/handler/http"
	"github.com/aegis-analytics/tacticalfit-service/internal/messaging"
	"github.com/aegis-analytics/tacticalfit-service/internal/normalizer"
	"github.com/aegis-analytics/tacticalfit-service/internal/registry"
	"github.com/aegis-analytics/tacticalfit-service/internal/service"
	"github.com/aegis-analytics/tacticalfit-service/internal/store"
	"github.com/aegis-analytics/tacticalfit-service/pkg/fitscore"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("starting tacticalfit-service")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the metric registry; an invalid table is fatal before any
	// observation is processed
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Registry.Path).Msg("failed to load metric registry")
	}
	logger.Info().
		Str("version", reg.Version()).
		Int("metric_count", len(reg.Metrics())).
		Msg("metric registry loaded")

	// Create Redis store
	redisStore := store.NewRedisStore(
		store.RedisStoreConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		},
		logger,
	)
	defer redisStore.Close()

	// Test Redis connection
	if err := redisStore.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")

	// Create the pipeline components
	norm := normalizer.New(logger)
	agg := aggregator.New(cfg.Aggregation.ToAggregatorParams(), logger)
	scorer := fitscore.NewScorer(logger)

	// Validate the default scoring config against the loaded registry
	defaultScoring := cfg.Scoring.ToScoringConfig()
	if err := fitscore.ValidateConfig(defaultScoring, reg); err != nil {
		logger.Fatal().Err(err).Msg("invalid default scoring config")
	}

	// Create fit service layer
	fitService := service.NewFitService(redisStore, reg, norm, agg, scorer, defaultScoring, logger)
	logger.Info().Msg("fit service initialized")

	// Create Kafka consumer for the ingestion boundary
	consumer := messaging.NewKafkaConsumer(
		messaging.KafkaConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		},
		redisStore,
		logger,
	)
	defer consumer.Close()

	// Start Kafka consumer in goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Kafka consumer failed")
		}
	}()

	// Initialize HTTP handler
	fitHandler := httpHandler.NewFitHandler(fitService, logger)
	logger.Info().Msg("HTTP handler initialized")

	// Setup HTTP server routes
	mux := http.NewServeMux()

	// Health and monitoring endpoints
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		readyHandler(w, r, redisStore)
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Register API routes
	fitHandler.RegisterRoutes(mux)
	logger.Info().Msg("API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")

	// Cancel context to stop consumer
	cancel()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

// setupLogger configures the logger based on config
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set format
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return log.Logger.With().Str("service", "tacticalfit").Logger()
}

// healthHandler returns 200 if service is running
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler returns 200 if service is ready to accept traffic
func readyHandler(w http.ResponseWriter, r *http.Request, s *store.RedisStore) {
	// Check Redis connection
	if err := s.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Redis unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
