package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/api"
	"github.com/life-quote-server/internal/cache"
	"github.com/life-quote-server/internal/config"
	"github.com/life-quote-server/internal/database"
	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/eligibility"
	"github.com/life-quote-server/internal/preferences"
	"github.com/life-quote-server/internal/pricing"
	"github.com/life-quote-server/internal/quotes"
	"github.com/life-quote-server/internal/rules"
)

func main() {
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
	logger := newLogger(cfg)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect the rate-table database and run migrations
	db, err := database.NewConnection(ctx, database.ConfigFrom(&cfg.Database), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect rate-table database")
	}
	defer db.Close()

	migrator, err := database.NewMigrator(configManager.GetDatabaseURL(), "migrations", logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open migrations")
	}
	if err := migrator.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate schema")
	}
	migrator.Close()

	// Build the quoting pipeline
	repo := rules.NewFileRepository(cfg.Rules, logger)
	traverser := rules.NewTraverser(logger)
	aggregator := eligibility.NewAggregator(eligibility.NewContainmentMatcher(), logger)

	source, err := pricing.NewPostgresSource(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create quote source")
	}

	prefStore := newPreferenceStore(configManager, logger)
	if prefStore != nil {
		defer prefStore.Close()
	}

	var quoteCache domain.QuoteCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisQuoteCache(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, quote caching disabled")
		} else {
			quoteCache = redisCache
			defer redisCache.Close()
		}
	}

	service := quotes.NewService(repo, traverser, aggregator, source, prefStore, quoteCache, logger)
	sessions := quotes.NewSessionStore(30 * time.Minute)

	// Create server
	server := api.NewServer(configManager, service, prefStore, sessions, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting life quote server")

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg *domain.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// newPreferenceStore builds the carrier preference store from the
// configured driver. A store failure is not fatal: quoting falls back to
// showing every carrier.
func newPreferenceStore(configManager *config.Manager, logger *logrus.Logger) domain.PreferenceStore {
	cfg := configManager.GetPreferencesConfig()

	switch cfg.Driver {
	case "postgres":
		store, err := preferences.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
		if err != nil {
			logger.WithError(err).Warn("Postgres preference store unavailable, showing all carriers")
			return nil
		}
		return store
	default:
		store, err := preferences.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			logger.WithError(err).Warn("SQLite preference store unavailable, showing all carriers")
			return nil
		}
		return store
	}
}
