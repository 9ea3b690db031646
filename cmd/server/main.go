package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dvo-fracture-risk-server/internal/api"
	"github.com/dvo-fracture-risk-server/internal/config"
	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/feedback"
	"github.com/dvo-fracture-risk-server/internal/service"
)

func main() {
	// Load .env if present; real environment variables take precedence
	_ = godotenv.Load()

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Load and compile the reference datasets
	bundle, err := dataset.Load(cfg.Dataset.Dir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load reference datasets")
	}
	catalog, err := dataset.Compile(bundle)
	if err != nil {
		logger.WithError(err).Fatal("Failed to compile reference datasets")
	}
	logger.WithFields(logrus.Fields{
		"dataset_version": catalog.Version(),
		"guideline":       catalog.Guideline(),
	}).Info("Reference datasets loaded")

	// Create the evaluation engine
	evaluator, err := service.NewEvaluator(logger, catalog, cfg.Cache.MaxEntries)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create evaluator")
	}

	// Open the feedback store when enabled
	var store feedback.Store
	if cfg.Feedback.Enabled {
		sqliteStore, err := feedback.NewSQLiteStore(cfg.Feedback.DBPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open feedback store")
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.WithField("db_path", cfg.Feedback.DBPath).Info("Feedback store opened")
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting DVO fracture-risk server")

	// Create server
	server := api.NewServer(logger, configManager, evaluator, catalog, store)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from the logging configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
